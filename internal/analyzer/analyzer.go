package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stphegia-org/intv-comp/internal/chunker"
	"github.com/stphegia-org/intv-comp/internal/citation"
	"github.com/stphegia-org/intv-comp/internal/config"
	"github.com/stphegia-org/intv-comp/internal/metrics"
	"github.com/stphegia-org/intv-comp/internal/openai"
	"github.com/stphegia-org/intv-comp/internal/policy"
	"github.com/stphegia-org/intv-comp/internal/relevance"
	"github.com/stphegia-org/intv-comp/internal/report"
	"github.com/stphegia-org/intv-comp/internal/store"
	"github.com/stphegia-org/intv-comp/internal/transcript"
)

const (
	ModeChunk  = "chunk"
	ModePolicy = "policy"
)

// RunSummary aggregates what one analysis run produced.
type RunSummary struct {
	RunID             uuid.UUID // uuid.Nil when auditing is disabled
	Mode              string
	Sessions          int
	FilterStats       relevance.FilterStats
	Chunks            int
	OversizedChunks   int
	Reports           []string
	ResolvedCitations int
	FallbackCitations int
}

// Analyzer orchestrates a full run: load, filter, group, generate, render.
type Analyzer struct {
	cfg     config.Config
	llm     *openai.Client
	filter  *relevance.Filter
	repo    *citation.Repository
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires an analyzer. store may be nil, which disables run auditing.
func New(cfg config.Config, llm *openai.Client, filter *relevance.Filter, repo *citation.Repository, st *store.Store, m *metrics.Metrics, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		llm:     llm,
		filter:  filter,
		repo:    repo,
		store:   st,
		metrics: m,
		logger:  logger,
	}
}

// task is one report-generation unit: a chunk or a policy conversation.
type task struct {
	unit       string
	title      string
	messages   []transcript.Message
	sessionIDs []string
}

func (a *Analyzer) Run(ctx context.Context) (*RunSummary, error) {
	mode := a.cfg.Mode
	if mode != ModeChunk && mode != ModePolicy {
		return nil, fmt.Errorf("unknown analysis mode %q", mode)
	}
	if mode == ModePolicy && a.cfg.CitationsRequired && a.repo.DocumentCount() == 0 {
		return nil, fmt.Errorf("policy mode: %w, check EXTERNAL_SOURCES_PATH", citation.ErrSourcesRequired)
	}

	sessions, err := transcript.LoadSessions(a.cfg.SessionsCSVPath)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	messages, err := transcript.LoadMessages(a.cfg.MessagesCSVPath)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	order := transcript.SessionOrder(sessions, messages)
	selected := transcript.SelectSessions(order, a.cfg.SessionLimit, a.cfg.SessionSample, nil)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no sessions found in the input, check the CSV contents")
	}
	messages = restrictToSessions(messages, selected)

	a.logger.Info("starting analysis",
		"mode", mode,
		"sessions", len(selected),
		"messages", len(messages),
		"model", a.llm.Model(),
	)

	summary := &RunSummary{Mode: mode, Sessions: len(selected)}

	// The audit row opens before generation so failed runs leave a trace.
	if a.store != nil {
		id, err := a.store.CreateRun(ctx, mode, a.cfg.PolicyID)
		if err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		summary.RunID = id
	}

	runErr := a.execute(ctx, sessions, messages, summary)
	a.finishAudit(ctx, summary, runErr)
	if runErr != nil {
		return nil, runErr
	}

	a.logger.Info("analysis complete",
		"mode", mode,
		"reports", len(summary.Reports),
		"kept_messages", summary.FilterStats.Kept,
		"resolved_citations", summary.ResolvedCitations,
		"fallback_citations", summary.FallbackCitations,
	)
	return summary, nil
}

func (a *Analyzer) execute(ctx context.Context, sessions []transcript.SessionMetadata, messages []transcript.Message, summary *RunSummary) error {
	kept := messages
	if a.cfg.FilterEnabled {
		var stats relevance.FilterStats
		kept, stats = a.filter.Apply(messages, a.cfg.RelevanceThreshold)
		summary.FilterStats = stats
		a.metrics.MessagesScored.Add(float64(stats.Total))
		a.metrics.MessagesKept.Add(float64(stats.Kept))
		a.metrics.MessagesExcluded.Add(float64(stats.Excluded))
	} else {
		summary.FilterStats = relevance.FilterStats{Total: len(messages), Kept: len(messages)}
		a.logger.Info("relevance filter disabled", "messages", len(messages))
	}

	if len(kept) == 0 {
		a.logger.Warn("no messages survived filtering, nothing to analyze")
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp.Before(kept[j].Timestamp) })

	tasks := a.buildTasks(kept, sessions, summary)
	if len(tasks) == 0 {
		return nil
	}

	resolver := citation.NewResolver(a.repo, sessions, a.cfg.CitationFallbackURL, a.logger)
	renderer := report.NewRenderer(resolver)
	references := LoadReferences(a.cfg.ReferencesDir, a.logger)

	if err := os.MkdirAll(a.cfg.ReportOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	results, err := a.runTasks(ctx, tasks, renderer, references)
	if err != nil {
		return err
	}

	for i, r := range results {
		path := filepath.Join(a.cfg.ReportOutputDir, tasks[i].unit+".md")
		if err := os.WriteFile(path, []byte(r.Document), 0o644); err != nil {
			return fmt.Errorf("write report %s: %w", path, err)
		}

		resolved := r.Citations - r.Fallbacks
		summary.Reports = append(summary.Reports, path)
		summary.ResolvedCitations += resolved
		summary.FallbackCitations += r.Fallbacks

		a.metrics.ReportsWritten.Inc()
		if resolved > 0 {
			a.metrics.CitationsResolved.WithLabelValues("resolved").Add(float64(resolved))
		}
		if r.Fallbacks > 0 {
			a.metrics.CitationsResolved.WithLabelValues("fallback").Add(float64(r.Fallbacks))
		}

		if a.store != nil && summary.RunID != uuid.Nil {
			if _, err := a.store.WriteReport(ctx, summary.RunID, tasks[i].unit, path, r.Citations, r.Fallbacks); err != nil {
				a.logger.Warn("report audit write failed", "unit", tasks[i].unit, "error", err)
			}
		}

		a.logger.Info("report written",
			"unit", tasks[i].unit,
			"path", path,
			"citations", r.Citations,
			"fallbacks", r.Fallbacks,
		)
	}
	return nil
}

// buildTasks turns the kept messages into generation units for the
// configured mode.
func (a *Analyzer) buildTasks(kept []transcript.Message, sessions []transcript.SessionMetadata, summary *RunSummary) []task {
	var tasks []task

	switch a.cfg.Mode {
	case ModeChunk:
		chunks := chunker.Split(kept, a.cfg.MaxChunkTokens)
		summary.Chunks = len(chunks)
		a.metrics.ChunksBuilt.Add(float64(len(chunks)))
		for i, c := range chunks {
			if c.Oversized {
				summary.OversizedChunks++
				a.metrics.ChunksOversized.Inc()
				a.logger.Warn("chunk exceeds the token budget",
					"chunk", i+1,
					"estimated_tokens", c.EstimatedTokens,
					"max_tokens", a.cfg.MaxChunkTokens,
				)
			}
			tasks = append(tasks, task{
				unit:       fmt.Sprintf("chunk_%03d", i+1),
				title:      fmt.Sprintf("チャンク %d の分析", i+1),
				messages:   c.Messages,
				sessionIDs: c.SessionIDs,
			})
		}

	case ModePolicy:
		convs := policy.Build(kept, sessions, a.cfg.PolicyID)
		for _, conv := range convs {
			if len(conv.Messages) == 0 {
				a.logger.Warn("policy has no messages after filtering", "policy_id", conv.PolicyID)
				continue
			}
			tasks = append(tasks, task{
				unit:       "policy_" + sanitizeUnit(conv.PolicyID),
				title:      conv.Title,
				messages:   conv.Messages,
				sessionIDs: sessionIDSet(conv.Messages),
			})
		}
		if len(tasks) == 0 {
			a.logger.Warn("no policy conversations to analyze", "policy_id", a.cfg.PolicyID)
		}
	}

	return tasks
}

// runTasks executes the generation tasks on a bounded worker pool. Results
// are collected by index so report numbering is deterministic regardless of
// completion order; the first failure cancels the remaining tasks.
func (a *Analyzer) runTasks(ctx context.Context, tasks []task, renderer *report.Renderer, references string) ([]report.RenderResult, error) {
	workers := a.cfg.LLMWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]report.RenderResult, len(tasks))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := a.runTask(runCtx, tasks[idx], renderer, references)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[idx] = res
			}
		}()
	}

feed:
	for i := range tasks {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Analyzer) runTask(ctx context.Context, tk task, renderer *report.Renderer, references string) (report.RenderResult, error) {
	userPrompt := buildUserPrompt(tk.title, tk.messages, documentContext(a.repo, tk.sessionIDs), references)

	a.logger.Info("generating report",
		"unit", tk.unit,
		"messages", len(tk.messages),
		"sessions", len(tk.sessionIDs),
	)

	start := time.Now()
	raw, err := a.llm.Complete(ctx, analysisSystemPrompt, userPrompt)
	a.metrics.LLMDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.LLMRequests.WithLabelValues("error").Inc()
		return report.RenderResult{}, fmt.Errorf("generate %s: %w", tk.unit, err)
	}
	a.metrics.LLMRequests.WithLabelValues("ok").Inc()

	sections := report.ParseSections(raw)
	quotes := report.ParseQuotations(sections.Quotes, a.logger)

	return renderer.Render(report.RenderInput{
		Title:        tk.title,
		Summary:      sections.Summary,
		BlindSpots:   sections.BlindSpots,
		Consistency:  sections.Consistency,
		Implications: sections.Implications,
		Quotations:   quotes,
	}), nil
}

func (a *Analyzer) finishAudit(ctx context.Context, summary *RunSummary, runErr error) {
	if a.store == nil || summary.RunID == uuid.Nil {
		return
	}

	rec := store.RunRecord{
		ID:                summary.RunID,
		TotalMessages:     summary.FilterStats.Total,
		KeptMessages:      summary.FilterStats.Kept,
		ExcludedMessages:  summary.FilterStats.Excluded,
		Chunks:            summary.Chunks,
		Reports:           len(summary.Reports),
		ResolvedCitations: summary.ResolvedCitations,
		FallbackCitations: summary.FallbackCitations,
		Status:            store.StatusCompleted,
	}
	if runErr != nil {
		rec.Status = store.StatusFailed
		rec.ErrorText = runErr.Error()
	}

	if err := a.store.FinishRun(ctx, rec); err != nil {
		a.logger.Warn("run audit update failed", "run_id", summary.RunID, "error", err)
	}
}

func restrictToSessions(messages []transcript.Message, sessionIDs []string) []transcript.Message {
	allowed := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		allowed[id] = true
	}
	out := make([]transcript.Message, 0, len(messages))
	for _, m := range messages {
		if allowed[m.SessionID] {
			out = append(out, m)
		}
	}
	return out
}

func sessionIDSet(messages []transcript.Message) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range messages {
		if !seen[m.SessionID] {
			seen[m.SessionID] = true
			ids = append(ids, m.SessionID)
		}
	}
	sort.Strings(ids)
	return ids
}

// sanitizeUnit makes a policy id safe for use in a file name.
func sanitizeUnit(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
