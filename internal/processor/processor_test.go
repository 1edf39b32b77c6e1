package processor

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stphegia-org/intv-comp/internal/bus"
	"github.com/stphegia-org/intv-comp/internal/citation"
	"github.com/stphegia-org/intv-comp/internal/config"
	"github.com/stphegia-org/intv-comp/internal/metrics"
	"github.com/stphegia-org/intv-comp/internal/openai"
	"github.com/stphegia-org/intv-comp/internal/relevance"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestConfig_MergesRequestOverDefaults(t *testing.T) {
	p := &Processor{cfg: config.Config{
		MessagesCSVPath: "default_messages.csv",
		SessionsCSVPath: "default_sessions.csv",
		Mode:            "chunk",
		ReportOutputDir: "reports",
	}}

	got := p.requestConfig(bus.AnalysisRequest{
		RequestID:    "req-001",
		MessagesFile: "override_messages.csv",
		Mode:         "policy",
		PolicyID:     "POL-002",
	})

	if got.MessagesCSVPath != "override_messages.csv" {
		t.Errorf("MessagesCSVPath = %q, want override", got.MessagesCSVPath)
	}
	if got.SessionsCSVPath != "default_sessions.csv" {
		t.Errorf("SessionsCSVPath = %q, want configured default", got.SessionsCSVPath)
	}
	if got.Mode != "policy" {
		t.Errorf("Mode = %q, want %q", got.Mode, "policy")
	}
	if got.PolicyID != "POL-002" {
		t.Errorf("PolicyID = %q, want %q", got.PolicyID, "POL-002")
	}
	if got.ReportOutputDir != "reports" {
		t.Errorf("ReportOutputDir = %q, want configured default", got.ReportOutputDir)
	}
}

func TestRequestConfig_EmptyRequestKeepsDefaults(t *testing.T) {
	base := config.Config{
		MessagesCSVPath: "messages.csv",
		SessionsCSVPath: "sessions.csv",
		Mode:            "chunk",
		PolicyID:        "POL-001",
		ReportOutputDir: "reports",
	}
	p := &Processor{cfg: base}

	got := p.requestConfig(bus.AnalysisRequest{RequestID: "req-002"})

	if got != base {
		t.Errorf("requestConfig() = %+v, want base config unchanged", got)
	}
}

func TestHandleAnalysisRequested_MalformedPayloadDropped(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{ReportOutputDir: filepath.Join(dir, "reports")}
	p := New(cfg, nil, nil, citation.EmptyRepository(), nil, metrics.New(), nil, discardLogger())

	p.HandleAnalysisRequested(bus.SubjectAnalysisRequested, []byte("{not json"))

	if _, err := os.Stat(cfg.ReportOutputDir); !os.IsNotExist(err) {
		t.Error("malformed payload must not start an analysis run")
	}
}

func TestHandleAnalysisRequested_WritesReportsToRequestedDir(t *testing.T) {
	dir := t.TempDir()
	messagesPath := filepath.Join(dir, "messages.csv")
	sessionsPath := filepath.Join(dir, "sessions.csv")
	writeFile(t, messagesPath, "session_id,message_id,timestamp,role,content\n"+
		"S001,M001,2025-04-01 10:00:00,respondent,船荷証券の電子化法案は貿易実務を変えると思います\n")
	writeFile(t, sessionsPath, "session_id,policy_id,policy_title,title\n"+
		"S001,POL-001,船荷証券電子化法案,荷主ヒアリング\n")

	response := "[summary]\n論点の要約です。\n[/summary]\n" +
		"[blind_spots]\n特になし。\n[/blind_spots]\n" +
		"[consistency]\n一貫しています。\n[/consistency]\n" +
		"[implications]\n示唆は明確です。\n[/implications]\n" +
		"[quotes]\n[/quotes]\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": response}},
			},
			"usage": map[string]int{"prompt_tokens": 500, "completion_tokens": 100},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	llm := openai.New("test-key", "gpt-4.1", discardLogger())
	llm.SetTestTransport(server.URL)

	scorer, err := relevance.NewScorer(relevance.DefaultScoringConfig())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	filter := relevance.NewFilter(scorer, discardLogger())

	cfg := config.Config{
		MessagesCSVPath:     filepath.Join(dir, "unused_default.csv"),
		SessionsCSVPath:     sessionsPath,
		ReportOutputDir:     filepath.Join(dir, "default_reports"),
		Mode:                "chunk",
		RelevanceThreshold:  0.3,
		MaxChunkTokens:      8000,
		FilterEnabled:       true,
		CitationFallbackURL: "https://www.moj.go.jp/",
		OpenAIModel:         "gpt-4.1",
		LLMWorkers:          1,
	}
	p := New(cfg, llm, filter, citation.EmptyRepository(), nil, metrics.New(), nil, discardLogger())

	outDir := filepath.Join(dir, "event_reports")
	payload, err := json.Marshal(bus.AnalysisRequest{
		RequestID:    "req-003",
		MessagesFile: messagesPath,
		OutputDir:    outDir,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	p.HandleAnalysisRequested(bus.SubjectAnalysisRequested, payload)

	data, err := os.ReadFile(filepath.Join(outDir, "chunk_001.md"))
	if err != nil {
		t.Fatalf("expected report in requested output dir: %v", err)
	}
	if !strings.Contains(string(data), "## 1. エグゼクティブサマリー") {
		t.Errorf("report missing summary heading:\n%s", data)
	}
	if !strings.Contains(string(data), "論点の要約です。") {
		t.Errorf("report missing summary body:\n%s", data)
	}
	if _, err := os.Stat(cfg.ReportOutputDir); !os.IsNotExist(err) {
		t.Error("default output dir must stay untouched when the request names one")
	}
}

func TestReportNames(t *testing.T) {
	got := reportNames([]string{"reports/chunk_001.md", filepath.Join("out", "policy_POL-001.md"), "plain.md"})
	want := []string{"chunk_001.md", "policy_POL-001.md", "plain.md"}
	if len(got) != len(want) {
		t.Fatalf("reportNames() returned %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reportNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
