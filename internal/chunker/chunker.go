package chunker

import (
	"sort"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

// Chunk is a token-bounded, order-preserving run of messages handed to the
// LLM as one analysis unit. SessionIDs is the sorted set of sessions that
// contributed messages, used downstream to scope citation mappings.
type Chunk struct {
	Messages        []transcript.Message
	SessionIDs      []string
	EstimatedTokens int
	Oversized       bool
}

// EstimateTokens approximates token cost without a tokenizer: each non-ASCII
// rune counts as one token, ASCII characters at four per token rounded up.
func EstimateTokens(text string) int {
	ascii := 0
	tokens := 0
	for _, r := range text {
		if r < 128 {
			ascii++
		} else {
			tokens++
		}
	}
	return tokens + (ascii+3)/4
}

// Split partitions time-ordered messages into chunks whose estimated totals
// stay within maxTokens. The input must already be sorted by timestamp;
// Split never reorders. A single message over the bound becomes its own
// chunk flagged Oversized rather than being dropped or truncated.
func Split(messages []transcript.Message, maxTokens int) []Chunk {
	if len(messages) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []transcript.Message
	currentTokens := 0

	for _, msg := range messages {
		cost := EstimateTokens(msg.Content)

		if len(current) > 0 && currentTokens+cost > maxTokens {
			chunks = append(chunks, buildChunk(current, currentTokens, maxTokens))
			current = nil
			currentTokens = 0
		}

		current = append(current, msg)
		currentTokens += cost
	}

	if len(current) > 0 {
		chunks = append(chunks, buildChunk(current, currentTokens, maxTokens))
	}

	return chunks
}

func buildChunk(msgs []transcript.Message, tokens, maxTokens int) Chunk {
	c := Chunk{
		Messages:        make([]transcript.Message, len(msgs)),
		SessionIDs:      sessionIDs(msgs),
		EstimatedTokens: tokens,
		Oversized:       tokens > maxTokens,
	}
	copy(c.Messages, msgs)
	return c
}

func sessionIDs(msgs []transcript.Message) []string {
	seen := make(map[string]bool, len(msgs))
	var ids []string
	for _, m := range msgs {
		if !seen[m.SessionID] {
			seen[m.SessionID] = true
			ids = append(ids, m.SessionID)
		}
	}
	sort.Strings(ids)
	return ids
}
