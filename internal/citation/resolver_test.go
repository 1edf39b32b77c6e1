package citation

import (
	"testing"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

const fallbackURL = "https://www.moj.go.jp/"

func testRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(
		[]Document{
			{DocID: "DOC-001", Title: "船荷証券電子化法案の概要", URL: "https://example.go.jp/docs/001"},
			{DocID: "DOC-002", Title: "貿易実務ガイドライン", URL: "https://example.go.jp/docs/002"},
		},
		[]SessionMapping{
			{SessionID: "S001", DocIDs: []string{"DOC-404", "DOC-002"}},
			{SessionID: "S002", DocIDs: []string{"DOC-001"}},
			{SessionID: "S003", DocIDs: []string{"DOC-001"}},
			{SessionID: "S004", DocIDs: []string{"DOC-404"}},
		},
	)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func testSessions() []transcript.SessionMetadata {
	return []transcript.SessionMetadata{
		{SessionID: "S001", PolicyID: "P1"},
		{SessionID: "S002", PolicyID: "P1"},
		{SessionID: "S003", PolicyID: "P1"},
		{SessionID: "S004", PolicyID: "P1"},
		{SessionID: "S005", PolicyID: "P1"},
	}
}

func TestResolve_FirstResolvableDocWins(t *testing.T) {
	r := NewResolver(testRepository(t), testSessions(), fallbackURL, discardLogger())

	link := r.Resolve("S001", "M010")

	if link.URL != "https://example.go.jp/docs/002" {
		t.Errorf("url = %q, want DOC-002's url (DOC-404 is unknown)", link.URL)
	}
	if link.SourceLabel != "貿易実務ガイドライン" {
		t.Errorf("source label = %q", link.SourceLabel)
	}
	if link.Fallback {
		t.Error("resolved link flagged as fallback")
	}
	if link.SessionID != "S001" || link.MessageID != "M010" {
		t.Errorf("identity = %s/%s, want S001/M010", link.SessionID, link.MessageID)
	}
}

func TestResolve_NoMappingFallsBack(t *testing.T) {
	r := NewResolver(testRepository(t), testSessions(), fallbackURL, discardLogger())

	link := r.Resolve("S999", "M001")

	if link.URL != fallbackURL {
		t.Errorf("url = %q, want fallback", link.URL)
	}
	if !link.Fallback {
		t.Error("fallback link not flagged")
	}
	if link.SourceLabel != "" {
		t.Errorf("source label = %q, want empty for fallback", link.SourceLabel)
	}
}

func TestResolve_UnresolvableDocsFallBack(t *testing.T) {
	r := NewResolver(testRepository(t), testSessions(), fallbackURL, discardLogger())

	link := r.Resolve("S004", "M001")

	if link.URL != fallbackURL {
		t.Errorf("url = %q, want fallback when no doc id resolves", link.URL)
	}
	if !link.Fallback {
		t.Error("fallback link not flagged")
	}
}

func TestResolve_NeverEmptyURL(t *testing.T) {
	r := NewResolver(EmptyRepository(), nil, fallbackURL, discardLogger())

	for _, session := range []string{"S001", "S999", ""} {
		if link := r.Resolve(session, "M001"); link.URL == "" {
			t.Errorf("empty url for session %q", session)
		}
	}
}

func TestResolveForPolicy_DedupesByDocument(t *testing.T) {
	r := NewResolver(testRepository(t), testSessions(), fallbackURL, discardLogger())

	links := r.ResolveForPolicy("P1")

	// S001 -> DOC-002, S002 -> DOC-001, S003 repeats DOC-001 (deduped),
	// S004 resolves nothing, S005 has no mapping.
	if len(links) != 2 {
		t.Fatalf("links = %d, want 2", len(links))
	}
	if links[0].URL != "https://example.go.jp/docs/002" || links[0].SessionID != "S001" {
		t.Errorf("first link = %+v", links[0])
	}
	if links[1].URL != "https://example.go.jp/docs/001" || links[1].SessionID != "S002" {
		t.Errorf("second link = %+v", links[1])
	}
	for _, l := range links {
		if l.Fallback {
			t.Errorf("policy link flagged fallback: %+v", l)
		}
	}
}

func TestResolveForPolicy_UnknownPolicyEmpty(t *testing.T) {
	r := NewResolver(testRepository(t), testSessions(), fallbackURL, discardLogger())

	if links := r.ResolveForPolicy("P9"); len(links) != 0 {
		t.Errorf("links = %d, want 0 without fallback padding", len(links))
	}
}
