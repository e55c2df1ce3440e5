package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestReportService(t *testing.T, handler http.HandlerFunc) (*ReportService, *httptest.Server) {
	t.Helper()

	root := t.TempDir()
	csvText := "week,sales,tv_spend\n2024-01-01,100,10\n2024-01-08,120,12\n"
	assert.NoError(t, os.WriteFile(filepath.Join(root, "demo.csv"), []byte(csvText), 0o644))

	server := httptest.NewServer(handler)
	svc := &ReportService{
		Store: NewArtifactStore(root),
		Client: &LLMClient{
			Endpoint:   server.URL,
			Model:      "test-model",
			HTTPClient: &http.Client{Timeout: 5 * time.Second},
		},
	}
	return svc, server
}

func TestReportServiceAnalyze(t *testing.T) {
	var gotPrompt string
	svc, server := newTestReportService(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req["prompt"]
		json.NewEncoder(w).Encode(map[string]string{
			"text": `Here you go: {"reportTitle":"Spend Review","summary":"tv leads","keyInsights":[]}`,
		})
	})
	defer server.Close()

	report, err := svc.Analyze(context.Background(), "demo.csv", "which channel performs best?")
	assert.NoError(t, err)
	assert.Equal(t, "Spend Review", report.ReportTitle)
	assert.Equal(t, "tv leads", report.Summary)

	assert.Contains(t, gotPrompt, "{week:string, sales:number, tv_spend:number}")
	assert.Contains(t, gotPrompt, "which channel performs best?")
	assert.NotContains(t, gotPrompt, "MUST provide relevant code")
}

func TestReportServiceAnalyzePlotKeywordAddsInstruction(t *testing.T) {
	var gotPrompt string
	svc, server := newTestReportService(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req["prompt"]
		json.NewEncoder(w).Encode(map[string]string{
			"text": `{"reportTitle":"T","summary":"s"}`,
		})
	})
	defer server.Close()

	_, err := svc.Analyze(context.Background(), "demo.csv", "plot sales by week")
	assert.NoError(t, err)
	assert.Contains(t, gotPrompt, "visualizationCode")
	assert.Contains(t, gotPrompt, "MUST provide relevant code")
}

func TestReportServiceAnalyzeValidation(t *testing.T) {
	svc, server := newTestReportService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "{}"})
	})
	defer server.Close()

	_, err := svc.Analyze(context.Background(), "demo.csv", "  ")
	assert.ErrorIs(t, err, ErrPromptRequired)

	_, err = svc.Analyze(context.Background(), "absent.csv", "question")
	assert.ErrorIs(t, err, ErrDatasetFileNotFound)
}

func TestReportServiceAnalyzeUnparsableOutput(t *testing.T) {
	svc, server := newTestReportService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "I cannot answer that."})
	})
	defer server.Close()

	_, err := svc.Analyze(context.Background(), "demo.csv", "question")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestReportServiceFollowUp(t *testing.T) {
	var gotPrompt string
	svc, server := newTestReportService(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req["prompt"]
		json.NewEncoder(w).Encode(map[string]string{
			"text": `{"summary":"radio lags behind tv"}`,
		})
	})
	defer server.Close()

	report, err := svc.FollowUp(context.Background(), "demo.csv",
		"which channel performs best?", "assistant: tv leads", "what about radio?")
	assert.NoError(t, err)
	assert.Equal(t, "radio lags behind tv", report.Summary)
	assert.Contains(t, gotPrompt, "what about radio?")
	assert.Contains(t, gotPrompt, "assistant: tv leads")
}

func TestLLMClientErrors(t *testing.T) {
	client := &LLMClient{HTTPClient: http.DefaultClient}
	_, err := client.GenerateContent(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrLLMNotConfigured)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client = &LLMClient{Endpoint: server.URL, HTTPClient: http.DefaultClient}
	_, err = client.GenerateContent(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrLLMUpstream)

	errServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "model overloaded"})
	}))
	defer errServer.Close()

	client = &LLMClient{Endpoint: errServer.URL, HTTPClient: http.DefaultClient}
	_, err = client.GenerateContent(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrLLMUpstream)
	assert.Contains(t, err.Error(), "model overloaded")
}
