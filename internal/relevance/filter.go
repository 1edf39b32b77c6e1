package relevance

import (
	"fmt"
	"log/slog"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

const maxExcludedExamples = 10

// ExcludedExample captures one dropped message for diagnostics.
type ExcludedExample struct {
	SessionID string
	MessageID string
	Score     float64
	Keywords  []string
	Content   string // first 100 runes
}

// FilterStats reports the outcome of one filter run.
type FilterStats struct {
	Total    int
	Kept     int
	Excluded int
	Examples []ExcludedExample // capped at maxExcludedExamples
}

// ExcludedPercent returns the excluded share in percent; 0 for empty input.
func (s FilterStats) ExcludedPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Excluded) / float64(s.Total) * 100
}

// Summary renders the reduction line logged after every filter run.
func (s FilterStats) Summary() string {
	return fmt.Sprintf("全%d件 → %d件に削減 (除外: %d件, %.1f%%)", s.Total, s.Kept, s.Excluded, s.ExcludedPercent())
}

// Filter drops low-relevance messages from a collection.
type Filter struct {
	scorer *Scorer
	logger *slog.Logger
}

func NewFilter(scorer *Scorer, logger *slog.Logger) *Filter {
	return &Filter{scorer: scorer, logger: logger}
}

// Apply scores every message and keeps those scoring strictly above
// threshold, preserving input order. A score equal to the threshold is
// excluded. Apply never fails: zero messages yield zero output.
func (f *Filter) Apply(messages []transcript.Message, threshold float64) ([]transcript.Message, FilterStats) {
	kept := make([]transcript.Message, 0, len(messages))
	stats := FilterStats{Total: len(messages)}

	for _, m := range messages {
		sm := f.scorer.ScoreMessage(m)
		if sm.Score > threshold {
			kept = append(kept, sm.Message)
			continue
		}
		stats.Excluded++
		if len(stats.Examples) < maxExcludedExamples {
			stats.Examples = append(stats.Examples, ExcludedExample{
				SessionID: sm.SessionID,
				MessageID: sm.MessageID,
				Score:     sm.Score,
				Keywords:  sm.MatchedKeywords,
				Content:   truncateRunes(sm.Content, 100),
			})
		}
	}
	stats.Kept = len(kept)

	f.logger.Info(stats.Summary(), "threshold", threshold)
	for i, ex := range stats.Examples {
		f.logger.Debug("除外メッセージ例",
			"example", fmt.Sprintf("%d/%d", i+1, len(stats.Examples)),
			"score", ex.Score,
			"session_id", ex.SessionID,
			"message_id", ex.MessageID,
			"keywords", ex.Keywords,
			"content", ex.Content,
		)
	}

	return kept, stats
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
