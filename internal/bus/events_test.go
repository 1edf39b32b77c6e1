package bus

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAnalysisRequestParsing(t *testing.T) {
	raw := `{
		"request_id": "req-001",
		"messages_file": "data/messages.csv",
		"sessions_file": "data/sessions.csv",
		"mode": "policy",
		"policy_id": "POL-001",
		"output_dir": "reports/req-001"
	}`

	var req AnalysisRequest
	err := json.Unmarshal([]byte(raw), &req)
	if err != nil {
		t.Fatalf("failed to parse AnalysisRequest: %v", err)
	}

	if req.RequestID != "req-001" {
		t.Errorf("expected request_id 'req-001', got '%s'", req.RequestID)
	}
	if req.MessagesFile != "data/messages.csv" {
		t.Errorf("expected messages_file 'data/messages.csv', got '%s'", req.MessagesFile)
	}
	if req.Mode != "policy" {
		t.Errorf("expected mode 'policy', got '%s'", req.Mode)
	}
	if req.PolicyID != "POL-001" {
		t.Errorf("expected policy_id 'POL-001', got '%s'", req.PolicyID)
	}
	if req.OutputDir != "reports/req-001" {
		t.Errorf("expected output_dir 'reports/req-001', got '%s'", req.OutputDir)
	}
}

func TestAnalysisRequestPartialPayload(t *testing.T) {
	raw := `{"request_id": "req-002"}`

	var req AnalysisRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("failed to parse partial AnalysisRequest: %v", err)
	}

	if req.RequestID != "req-002" {
		t.Errorf("expected request_id 'req-002', got '%s'", req.RequestID)
	}
	if req.MessagesFile != "" || req.Mode != "" || req.OutputDir != "" {
		t.Errorf("expected empty defaults for omitted fields, got %+v", req)
	}
}

func TestReportGeneratedRoundTrip(t *testing.T) {
	event := ReportGenerated{
		RequestID:         "req-rt",
		RunID:             "0f8fad5b-d9cb-469f-a165-70867728950e",
		Mode:              "chunk",
		Reports:           []string{"chunk_001.md", "chunk_002.md"},
		OutputDir:         "reports",
		FallbackCitations: 1,
		ResolvedCitations: 4,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var parsed ReportGenerated
	err = json.Unmarshal(data, &parsed)
	if err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if !reflect.DeepEqual(parsed, event) {
		t.Errorf("round-trip mismatch: got %+v, want %+v", parsed, event)
	}
}

func TestAnalysisFailedRoundTrip(t *testing.T) {
	event := AnalysisFailed{
		RequestID: "req-fail",
		Error:     "load messages: open data/messages.csv: no such file or directory",
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var parsed AnalysisFailed
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if parsed != event {
		t.Errorf("round-trip mismatch: got %+v, want %+v", parsed, event)
	}
}

func TestSubjectConstants(t *testing.T) {
	if SubjectAnalysisRequested != "intv.analysis.requested" {
		t.Errorf("expected SubjectAnalysisRequested 'intv.analysis.requested', got '%s'", SubjectAnalysisRequested)
	}
	if SubjectReportGenerated != "intv.report.generated" {
		t.Errorf("expected SubjectReportGenerated 'intv.report.generated', got '%s'", SubjectReportGenerated)
	}
	if SubjectAnalysisFailed != "intv.analysis.failed" {
		t.Errorf("expected SubjectAnalysisFailed 'intv.analysis.failed', got '%s'", SubjectAnalysisFailed)
	}
}
