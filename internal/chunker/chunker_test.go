package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"four ascii chars", "abcd", 1},
		{"five ascii chars", "abcde", 2},
		{"japanese runes count one each", "こんにちは", 5},
		{"mixed ascii and japanese", "B/L の電子化", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateTokens_Monotonic(t *testing.T) {
	short := EstimateTokens("貿易の実務")
	long := EstimateTokens("貿易の実務について話します")
	if long < short {
		t.Errorf("longer text estimated below shorter: %d < %d", long, short)
	}
}

func TestSplit_UnderLimit(t *testing.T) {
	msgs := makeMessages(kana(100), kana(100), kana(100))
	chunks := Split(msgs, 1000)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0].Messages) != 3 {
		t.Errorf("expected 3 messages in chunk, got %d", len(chunks[0].Messages))
	}
	if chunks[0].EstimatedTokens != 300 {
		t.Errorf("estimated tokens = %d, want 300", chunks[0].EstimatedTokens)
	}
	if chunks[0].Oversized {
		t.Error("chunk under the bound flagged oversized")
	}
}

func TestSplit_SealsAtBound(t *testing.T) {
	msgs := makeMessages(kana(400), kana(400), kana(400), kana(400))
	chunks := Split(msgs, 1000)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks for 4x400 tokens at bound 1000, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Messages) != 2 {
			t.Errorf("chunk %d: expected 2 messages, got %d", i, len(c.Messages))
		}
		if c.EstimatedTokens != 800 {
			t.Errorf("chunk %d: estimated tokens = %d, want 800", i, c.EstimatedTokens)
		}
	}
}

func TestSplit_OversizedMessage(t *testing.T) {
	msgs := makeMessages(kana(100), kana(1500), kana(100))
	chunks := Split(msgs, 1000)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Oversized || chunks[2].Oversized {
		t.Error("in-bound chunks flagged oversized")
	}
	if !chunks[1].Oversized {
		t.Error("over-bound single-message chunk not flagged oversized")
	}
	if len(chunks[1].Messages) != 1 {
		t.Errorf("oversized chunk has %d messages, want 1", len(chunks[1].Messages))
	}
	if chunks[1].EstimatedTokens != 1500 {
		t.Errorf("oversized chunk tokens = %d, want 1500", chunks[1].EstimatedTokens)
	}
}

func TestSplit_ConcatenationReproducesInput(t *testing.T) {
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = kana(30)
	}
	msgs := makeMessages(contents...)
	chunks := Split(msgs, 70)

	var ids []string
	for _, c := range chunks {
		for _, m := range c.Messages {
			ids = append(ids, m.MessageID)
		}
	}

	if len(ids) != len(msgs) {
		t.Fatalf("chunks carry %d messages, want %d", len(ids), len(msgs))
	}
	for i, m := range msgs {
		if ids[i] != m.MessageID {
			t.Errorf("position %d: got %s, want %s", i, ids[i], m.MessageID)
		}
	}
}

func TestSplit_SessionIDsSortedUnique(t *testing.T) {
	msgs := makeMessages(kana(10), kana(10), kana(10), kana(10))
	msgs[0].SessionID = "S002"
	msgs[1].SessionID = "S001"
	msgs[2].SessionID = "S001"
	msgs[3].SessionID = "S003"

	chunks := Split(msgs, 1000)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	want := []string{"S001", "S002", "S003"}
	if !reflect.DeepEqual(chunks[0].SessionIDs, want) {
		t.Errorf("session ids = %v, want %v", chunks[0].SessionIDs, want)
	}
}

func TestSplit_Empty(t *testing.T) {
	if chunks := Split(nil, 1000); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for nil messages, got %d", len(chunks))
	}
}

// kana returns text costing exactly n estimated tokens.
func kana(n int) string {
	return strings.Repeat("あ", n)
}

func makeMessages(contents ...string) []transcript.Message {
	base := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	msgs := make([]transcript.Message, len(contents))
	for i, c := range contents {
		msgs[i] = transcript.Message{
			SessionID: "S001",
			MessageID: fmt.Sprintf("M%03d", i+1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Role:      transcript.RoleRespondent,
			Content:   c,
		}
	}
	return msgs
}
