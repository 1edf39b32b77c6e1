package analyzer

import (
	"fmt"
	"strings"

	"github.com/stphegia-org/intv-comp/internal/citation"
	"github.com/stphegia-org/intv-comp/internal/transcript"
)

const analysisSystemPrompt = `あなたはリーガルテック領域の調査アナリストです。
ヒアリングの発言記録から立法・制度設計に影響する論点を掘り起こし、政策立案担当者向けに整理してください。

結果は必ず次の5つのタグ区間だけで出力してください。タグの外には何も書かないでください。

[summary]
エグゼクティブサマリー。発言全体を通じた主要な洞察を簡潔にまとめる。
[/summary]
[blind_spots]
見落とされている論点。暗黙の前提や制度の隙間を含めて挙げる。
[/blind_spots]
[consistency]
意見の一貫性と相違点。発言者間で一致している点と割れている点を整理する。
[/consistency]
[implications]
示唆の明確さ。立法・制度設計に向けた提案と、追加で検討すべき事項をまとめる。
[/implications]
[quotes]
主要な引用。根拠として重要な発言を原文のまま選び、1行につき1件、次の形式で書く。
- 「引用文」（セッションID: S001 / 発言ID: M001）
[/quotes]

発言記録の各行は [セッションID/発言ID] で始まります。引用にはこのIDをそのまま使い、創作しないでください。`

const analysisUserPrompt = `以下はヒアリング（インタビュー）の発言記録です。全体を読み込み、指定された5つのタグ区間で分析結果を出力してください。

分析対象: %s

## 発言記録
---
%s
---`

// buildUserPrompt assembles the per-task prompt: the transcript plus the
// optional external-document and reference-material blocks.
func buildUserPrompt(title string, messages []transcript.Message, documentContext, references string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, analysisUserPrompt, title, transcript.FormatTranscript(messages))

	if documentContext != "" {
		sb.WriteString("\n\n## 関連する外部文書\n\n")
		sb.WriteString(documentContext)
	}
	if references != "" {
		sb.WriteString("\n\n## 参考資料\n\n")
		sb.WriteString(references)
	}
	return sb.String()
}

// documentContext renders the reference documents mapped to the given
// sessions as a prompt block. Documents are deduplicated in first-mention
// order; an empty result means the prompt omits the block entirely.
func documentContext(repo *citation.Repository, sessionIDs []string) string {
	if repo.DocumentCount() == 0 {
		return ""
	}

	seen := make(map[string]bool)
	var docs []citation.Document
	for _, sid := range sessionIDs {
		mapping, ok := repo.MappingForSession(sid)
		if !ok {
			continue
		}
		for _, docID := range mapping.DocIDs {
			doc, ok := repo.DocumentByID(docID)
			if !ok || seen[doc.DocID] {
				continue
			}
			seen[doc.DocID] = true
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "- %s（文書ID: %s）\n  URL: %s\n  %s\n", d.Title, d.DocID, d.URL, d.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}
