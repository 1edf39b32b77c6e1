package report

import (
	"fmt"
	"strings"

	"github.com/stphegia-org/intv-comp/internal/citation"
)

const (
	emptySectionPlaceholder = "（記載なし）"
	noQuotesPlaceholder     = "（引用はありません）"
)

// RenderInput carries everything one report needs: a title, the four
// model-written section bodies, and the parsed quotations.
type RenderInput struct {
	Title        string
	Summary      string
	BlindSpots   string
	Consistency  string
	Implications string
	Quotations   []Quotation
}

// RenderResult is the rendered document plus citation coverage counters.
type RenderResult struct {
	Document  string
	Citations int
	Fallbacks int
}

// Renderer assembles the five-section report document. Section order,
// headings, and the citation block format are part of the wire contract
// and must not change.
type Renderer struct {
	resolver *citation.Resolver
}

func NewRenderer(resolver *citation.Resolver) *Renderer {
	return &Renderer{resolver: resolver}
}

func (r *Renderer) Render(in RenderInput) RenderResult {
	var res RenderResult
	var sb strings.Builder

	if in.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(in.Title)
		sb.WriteString("\n\n")
	}

	writeSection(&sb, "## 1. エグゼクティブサマリー", in.Summary)
	writeSection(&sb, "## 2. 見落とされている論点", in.BlindSpots)
	writeSection(&sb, "## 3. 意見の一貫性と相違点", in.Consistency)
	writeSection(&sb, "## 4. 示唆の明確さ", in.Implications)

	quoteBody := noQuotesPlaceholder
	if len(in.Quotations) > 0 {
		blocks := make([]string, 0, len(in.Quotations))
		for _, q := range in.Quotations {
			link := r.resolver.Resolve(q.SessionID, q.MessageID)
			res.Citations++
			if link.Fallback {
				res.Fallbacks++
			}
			blocks = append(blocks, citationBlock(q.Text, link))
		}
		quoteBody = strings.Join(blocks, "\n\n")
	}
	writeSection(&sb, "## 5. 主要な引用", quoteBody)

	res.Document = strings.TrimRight(sb.String(), "\n") + "\n"
	return res
}

func citationBlock(text string, link citation.Link) string {
	return fmt.Sprintf("> 「%s」\n> 出典：セッションID：%s / 発言ID：%s\n> 出典元リンク：%s",
		text, link.SessionID, link.MessageID, link.URL)
}

func writeSection(sb *strings.Builder, heading, body string) {
	sb.WriteString(heading)
	sb.WriteString("\n\n")
	body = strings.TrimSpace(body)
	if body == "" {
		body = emptySectionPlaceholder
	}
	sb.WriteString(body)
	sb.WriteString("\n\n")
}
