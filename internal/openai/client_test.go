package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %q", got)
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if req.Temperature != 0.2 {
			t.Errorf("temperature = %f, want 0.2", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "[summary]要約[/summary]"}},
			},
		})
	}))
	defer server.Close()

	c := New("test-key", "test-model", discardLogger())
	c.SetTestTransport(server.URL)

	result, err := c.Complete(context.Background(), "システムプロンプト", "ユーザープロンプト")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result != "[summary]要約[/summary]" {
		t.Errorf("result = %q", result)
	}
}

func TestComplete_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New("bad-key", "test-model", discardLogger())
	c.SetTestTransport(server.URL)

	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected auth error")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error %q should point at OPENAI_API_KEY", err)
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "rate_limit_exceeded", "message": "slow down"},
		})
	}))
	defer server.Close()

	c := New("test-key", "test-model", discardLogger())
	c.SetTestTransport(server.URL)

	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected api error")
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Errorf("error %q should carry the api message", err)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := New("test-key", "test-model", discardLogger())
	c.SetTestTransport(server.URL)

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
