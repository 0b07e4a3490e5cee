package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if u := os.Getenv("SENTINEL_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	groupID := fmt.Sprintf("smoke-%d", time.Now().Unix())

	var validations []map[string]any
	for i := 0; i < 4; i++ {
		for _, v := range []string{"v1", "v2"} {
			validations = append(validations, map[string]any{
				"validator_id":  v,
				"hypothesis_id": fmt.Sprintf("h%d", i),
				"score":         0.8,
				"timestamp":     fmt.Sprintf("2024-01-01T00:0%d:00Z", i),
				"note":          "the quick brown fox jumps over the lazy dog",
			})
		}
	}
	payload := map[string]any{"group_id": groupID, "validations": validations}

	fmt.Println("1. Full analysis...")
	var report struct {
		OverallRiskScore float64        `json:"overall_risk_score"`
		RiskBreakdown    map[string]int `json:"risk_breakdown"`
	}
	if !sendRequest("POST", "/coordination/analyze", payload, &report) {
		fmt.Println("FAILED: Analyze")
		os.Exit(1)
	}
	if report.RiskBreakdown["temporal"] != 1 || report.RiskBreakdown["score"] != 1 || report.RiskBreakdown["semantic"] != 1 {
		fmt.Printf("FAILED: unexpected breakdown %v\n", report.RiskBreakdown)
		os.Exit(1)
	}
	fmt.Println("PASSED: Analyze")

	fmt.Println("2. Network run...")
	var minimal map[string]any
	if !sendRequest("POST", "/network/run", payload, &minimal) {
		fmt.Println("FAILED: Network run")
		os.Exit(1)
	}
	if _, ok := minimal["graph"]; !ok || len(minimal) != 2 {
		fmt.Printf("FAILED: unexpected payload %v\n", minimal)
		os.Exit(1)
	}
	fmt.Println("PASSED: Network run")

	fmt.Println("3. Empty payload...")
	if !sendRequest("POST", "/coordination/analyze", map[string]any{}, nil) {
		fmt.Println("FAILED: Empty payload")
		os.Exit(1)
	}
	fmt.Println("PASSED: Empty payload")
}

func sendRequest(method, endpoint string, payload any, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	fmt.Printf("Response: %s\n", string(respBody))

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
