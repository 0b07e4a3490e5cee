package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/sentinel/internal/config"
	"github.com/agenthands/sentinel/internal/core"
	"github.com/agenthands/sentinel/internal/core/model"
	"github.com/agenthands/sentinel/internal/core/risk"
	"github.com/agenthands/sentinel/internal/llm"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sentinel",
		Short:        "Detect coordinated behavior among validators",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd(), newScoreCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		input      string
		configPath string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a JSON file of validation records and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfg.ApplyEnv()

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			records, err := decodeValidations(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			embedder, err := llm.NewEmbedder(ctx, cfg.LLM)
			if err != nil {
				return err
			}
			if c, ok := embedder.(interface{ Close() error }); ok {
				defer c.Close()
			}

			report := core.NewSentinel(cfg, embedder, logger).Analyze(ctx, records)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "validation records JSON file, - for stdin")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML or YAML config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log detector warnings")
	return cmd
}

func newScoreCmd() *cobra.Command {
	var in risk.Input
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print the composite risk score for the given flag counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.TemporalFlags < 0 || in.ScoreFlags < 0 || in.SemanticFlags < 0 || in.TotalValidators < 0 {
				return fmt.Errorf("counts must be non-negative")
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", risk.Compute(risk.DefaultWeights(), in))
			return err
		},
	}
	cmd.Flags().IntVar(&in.TemporalFlags, "temporal", 0, "temporal flag count")
	cmd.Flags().IntVar(&in.ScoreFlags, "score", 0, "score flag count")
	cmd.Flags().IntVar(&in.SemanticFlags, "semantic", 0, "semantic flag count")
	cmd.Flags().IntVar(&in.TotalValidators, "validators", 0, "number of validators in the graph")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input '%s': %w", path, err)
	}
	return data, nil
}

// decodeValidations accepts a bare array of records or an object with a
// "validations" array.
func decodeValidations(data []byte) ([]model.ValidationRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var records []model.ValidationRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse validations: %w", err)
		}
		return records, nil
	}
	var payload struct {
		Validations []model.ValidationRecord `json:"validations"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse validations: %w", err)
	}
	return payload.Validations, nil
}
