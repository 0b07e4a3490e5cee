package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/sentinel/internal/core"
	"github.com/agenthands/sentinel/internal/core/model"
	"github.com/agenthands/sentinel/internal/events"
	"github.com/agenthands/sentinel/internal/store"
)

const (
	routeNetworkRun = "network_run"
	routeAnalyze    = "analyze"
)

type Server struct {
	Sentinel *core.Sentinel
	Hooks    *events.HookManager
	// Store is optional; without it the report lookup route is not mounted.
	Store  *store.ReportStore
	logger *slog.Logger
}

func NewServer(sentinel *core.Sentinel, hooks *events.HookManager, reports *store.ReportStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hooks == nil {
		hooks = events.NewHookManager(logger)
	}
	return &Server{Sentinel: sentinel, Hooks: hooks, Store: reports, logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/network/run", s.NetworkRun)
	r.POST("/coordination/analyze", s.Analyze)
	if s.Store != nil {
		r.GET("/reports/:id", s.GetReport)
	}

	return r
}

type AnalyzeRequest struct {
	GroupID     string                   `json:"group_id"`
	Validations []model.ValidationRecord `json:"validations"`
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NetworkRun analyzes the payload, publishes a coordination_analysis_run
// event and answers with the score and graph only.
func (s *Server) NetworkRun(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	report := s.run(c, routeNetworkRun, req.Validations)
	s.Hooks.Trigger(c.Request.Context(), events.CoordinationAnalysisRun, req.GroupID, report)

	c.JSON(http.StatusOK, report.Minimal())
}

// Analyze answers with the full report.
func (s *Server) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	c.JSON(http.StatusOK, s.run(c, routeAnalyze, req.Validations))
}

func (s *Server) GetReport(c *gin.Context) {
	report, err := s.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load report", slog.String("id", c.Param("id")), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uuid":               report.UUID,
		"group_id":           report.GroupID,
		"overall_risk_score": report.OverallRiskScore,
		"flags":              report.Flags,
		"edges":              report.Edges,
		"communities":        report.Communities,
	})
}

func (s *Server) run(c *gin.Context, route string, records []model.ValidationRecord) *model.Report {
	start := time.Now()
	report := s.Sentinel.Analyze(c.Request.Context(), records)
	analysisDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	recordsPerRequest.Observe(float64(len(records)))

	outcome := "ok"
	switch {
	case report.Failed():
		outcome = "failed"
	case len(records) == 0:
		outcome = "empty"
	default:
		riskScores.Observe(report.OverallRiskScore)
	}
	analysesTotal.WithLabelValues(route, outcome).Inc()
	return report
}
