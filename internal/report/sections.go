package report

import (
	"log/slog"
	"regexp"
	"strings"
)

// Sections holds the model output split by the tagged-section protocol.
// A tag the model failed to emit leaves its section empty.
type Sections struct {
	Summary      string
	BlindSpots   string
	Consistency  string
	Implications string
	Quotes       string
}

var (
	summaryTag      = regexp.MustCompile(`(?s)\[summary\](.*?)\[/summary\]`)
	blindSpotsTag   = regexp.MustCompile(`(?s)\[blind_spots\](.*?)\[/blind_spots\]`)
	consistencyTag  = regexp.MustCompile(`(?s)\[consistency\](.*?)\[/consistency\]`)
	implicationsTag = regexp.MustCompile(`(?s)\[implications\](.*?)\[/implications\]`)
	quotesTag       = regexp.MustCompile(`(?s)\[quotes\](.*?)\[/quotes\]`)
)

// ParseSections extracts the five tagged sections from raw model output.
func ParseSections(raw string) Sections {
	return Sections{
		Summary:      extractTag(summaryTag, raw),
		BlindSpots:   extractTag(blindSpotsTag, raw),
		Consistency:  extractTag(consistencyTag, raw),
		Implications: extractTag(implicationsTag, raw),
		Quotes:       extractTag(quotesTag, raw),
	}
}

func extractTag(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Quotation is one quote the model selected, with the identity needed to
// cite it.
type Quotation struct {
	Text      string
	SessionID string
	MessageID string
}

// Quotation lines accept half- and full-width colons and parentheses; the
// model is not reliable about which it emits.
var quotePattern = regexp.MustCompile(`-\s*「(.+?)」\s*[（(]\s*セッションID[:：]\s*([^\s/]+)\s*/\s*発言ID[:：]\s*([^)）\s]+)\s*[)）]`)

// ParseQuotations reads the quotes section line by line. Lines that look
// like list items but do not parse are skipped with a debug log; the run
// never fails on a malformed quote.
func ParseQuotations(body string, logger *slog.Logger) []Quotation {
	var quotes []Quotation
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := quotePattern.FindStringSubmatch(line)
		if m == nil {
			if strings.HasPrefix(trimmed, "-") {
				logger.Debug("quotation line skipped", "line", trimmed)
			}
			continue
		}
		quotes = append(quotes, Quotation{
			Text:      m[1],
			SessionID: m[2],
			MessageID: m[3],
		})
	}
	return quotes
}
