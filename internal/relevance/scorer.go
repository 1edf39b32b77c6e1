package relevance

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

// Scorer rates the topical relevance of message text in [0,1] using lexical
// heuristics. It is pure: no hidden state, independent of call order.
type Scorer struct {
	keywords   []keywordMatcher
	irrelevant []*regexp.Regexp
}

type keywordMatcher struct {
	keyword string // original form, reported in diagnostics
	lowered string
	guarded bool // short Latin abbreviations must not sit inside a word
}

// NewScorer compiles a scorer from cfg.
func NewScorer(cfg ScoringConfig) (*Scorer, error) {
	s := &Scorer{}

	for _, pattern := range cfg.IrrelevancePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile irrelevance pattern %q: %w", pattern, err)
		}
		s.irrelevant = append(s.irrelevant, re)
	}

	for _, keyword := range cfg.Keywords() {
		lowered := strings.ToLower(keyword)
		s.keywords = append(s.keywords, keywordMatcher{
			keyword: keyword,
			lowered: lowered,
			guarded: utf8.RuneCountInString(lowered) <= 3 && isASCIIWord(lowered),
		})
	}
	return s, nil
}

// Score computes the relevance score for one message and reports the matched
// keywords.
//
// Irrelevance patterns short-circuit to 0.1. Trimmed text under 5 runes
// scores 0.2, the empty string included. Otherwise the base score follows
// the distinct keyword count (0 -> 0.1, 1 -> 0.4, 2 -> 0.6, n>=3 ->
// min(0.8+(n-3)*0.05, 1.0)) plus a length bonus (+0.1 at 100 runes, +0.2 at
// 200), clamped to [0,1].
func (s *Scorer) Score(text string) (float64, []string) {
	content := strings.TrimSpace(text)

	for _, re := range s.irrelevant {
		if re.MatchString(content) {
			return 0.1, nil
		}
	}

	runeCount := utf8.RuneCountInString(content)
	if runeCount < 5 {
		return 0.2, nil
	}

	lowered := strings.ToLower(content)
	var matched []string
	for _, kw := range s.keywords {
		if kw.matches(lowered) {
			matched = append(matched, kw.keyword)
		}
	}

	var base float64
	switch n := len(matched); {
	case n == 0:
		base = 0.1
	case n == 1:
		base = 0.4
	case n == 2:
		base = 0.6
	default:
		base = 0.8 + float64(n-3)*0.05
	}

	var bonus float64
	if runeCount >= 100 {
		bonus = 0.1
	}
	if runeCount >= 200 {
		bonus = 0.2
	}

	return clamp(base + bonus), matched
}

// ScoredMessage is a message annotated with its relevance score. Scores are
// derived per filter run and never persisted.
type ScoredMessage struct {
	transcript.Message
	Score           float64
	MatchedKeywords []string
}

// ScoreMessage scores a single message.
func (s *Scorer) ScoreMessage(m transcript.Message) ScoredMessage {
	score, matched := s.Score(m.Content)
	return ScoredMessage{Message: m, Score: score, MatchedKeywords: matched}
}

func (m keywordMatcher) matches(lowered string) bool {
	if !m.guarded {
		return strings.Contains(lowered, m.lowered)
	}

	// Guarded keywords (e.g. "BL") match only when not flanked by ASCII
	// letters or digits, so "problem" does not count as B/L.
	for from := 0; ; {
		i := strings.Index(lowered[from:], m.lowered)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(m.lowered)

		before, beforeSize := utf8.DecodeLastRuneInString(lowered[:start])
		after, afterSize := utf8.DecodeRuneInString(lowered[end:])
		if (beforeSize == 0 || !isASCIIAlnum(before)) && (afterSize == 0 || !isASCIIAlnum(after)) {
			return true
		}
		from = start + 1
	}
}

func isASCIIWord(s string) bool {
	if s == "" || strings.ContainsAny(s, "/ ") {
		return false
	}
	for _, r := range s {
		if !isASCIIAlnum(r) {
			return false
		}
	}
	return true
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
