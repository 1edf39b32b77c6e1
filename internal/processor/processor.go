package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/stphegia-org/intv-comp/internal/analyzer"
	"github.com/stphegia-org/intv-comp/internal/bus"
	"github.com/stphegia-org/intv-comp/internal/citation"
	"github.com/stphegia-org/intv-comp/internal/config"
	"github.com/stphegia-org/intv-comp/internal/metrics"
	"github.com/stphegia-org/intv-comp/internal/openai"
	"github.com/stphegia-org/intv-comp/internal/relevance"
	"github.com/stphegia-org/intv-comp/internal/store"
)

// Processor runs interview analyses in response to bus events.
type Processor struct {
	cfg     config.Config
	llm     *openai.Client
	filter  *relevance.Filter
	repo    *citation.Repository
	store   *store.Store
	metrics *metrics.Metrics
	bus     *bus.Client
	logger  *slog.Logger
}

func New(cfg config.Config, llm *openai.Client, filter *relevance.Filter, repo *citation.Repository, st *store.Store, m *metrics.Metrics, b *bus.Client, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:     cfg,
		llm:     llm,
		filter:  filter,
		repo:    repo,
		store:   st,
		metrics: m,
		bus:     b,
		logger:  logger,
	}
}

// HandleAnalysisRequested is the NATS handler for intv.analysis.requested.
// Malformed payloads are logged and dropped so a bad message never takes
// the subscriber down.
func (p *Processor) HandleAnalysisRequested(subject string, data []byte) {
	ctx := context.Background()

	var req bus.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Error("failed to parse analysis request", "error", err)
		return
	}

	runCfg := p.requestConfig(req)

	p.logger.Info("processing analysis request",
		"request_id", req.RequestID,
		"mode", runCfg.Mode,
		"messages_file", runCfg.MessagesCSVPath,
		"output_dir", runCfg.ReportOutputDir,
	)

	a := analyzer.New(runCfg, p.llm, p.filter, p.repo, p.store, p.metrics, p.logger)
	summary, err := a.Run(ctx)
	if err != nil {
		p.logger.Error("analysis failed", "request_id", req.RequestID, "error", err)
		p.publish(bus.SubjectAnalysisFailed, bus.AnalysisFailed{
			RequestID: req.RequestID,
			Error:     err.Error(),
		})
		return
	}

	runID := ""
	if summary.RunID != uuid.Nil {
		runID = summary.RunID.String()
	}
	p.publish(bus.SubjectReportGenerated, bus.ReportGenerated{
		RequestID:         req.RequestID,
		RunID:             runID,
		Mode:              summary.Mode,
		Reports:           reportNames(summary.Reports),
		OutputDir:         runCfg.ReportOutputDir,
		FallbackCitations: summary.FallbackCitations,
		ResolvedCitations: summary.ResolvedCitations,
	})

	p.logger.Info("analysis request processed",
		"request_id", req.RequestID,
		"reports", len(summary.Reports),
		"kept_messages", summary.FilterStats.Kept,
	)
}

// requestConfig merges the event payload over the configured defaults.
// Fields the requester leaves empty keep their configured values.
func (p *Processor) requestConfig(req bus.AnalysisRequest) config.Config {
	cfg := p.cfg
	if req.MessagesFile != "" {
		cfg.MessagesCSVPath = req.MessagesFile
	}
	if req.SessionsFile != "" {
		cfg.SessionsCSVPath = req.SessionsFile
	}
	if req.Mode != "" {
		cfg.Mode = req.Mode
	}
	if req.PolicyID != "" {
		cfg.PolicyID = req.PolicyID
	}
	if req.OutputDir != "" {
		cfg.ReportOutputDir = req.OutputDir
	}
	return cfg
}

func (p *Processor) publish(subject string, payload any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(subject, payload); err != nil {
		p.logger.Error("failed to publish event", "subject", subject, "error", err)
	}
}

// reportNames strips directories so the event carries file names and
// output_dir separately.
func reportNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
