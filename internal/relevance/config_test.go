package relevance

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScoringConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultScoringConfig_Keywords(t *testing.T) {
	kws := DefaultScoringConfig().Keywords()

	if len(kws) != 54 {
		t.Fatalf("keyword count = %d, want 54", len(kws))
	}
	if kws[0] != "法案" {
		t.Errorf("first keyword = %q, want 法案", kws[0])
	}
	if kws[10] != "船荷証券" {
		t.Errorf("keyword 10 = %q, want 船荷証券", kws[10])
	}
}

func TestLoadScoringConfig_PartialOverride(t *testing.T) {
	path := writeScoringConfig(t, "legal_terms:\n  - 特区\n")

	cfg, err := LoadScoringConfig(path)
	if err != nil {
		t.Fatalf("LoadScoringConfig: %v", err)
	}

	if len(cfg.LegalTerms) != 1 || cfg.LegalTerms[0] != "特区" {
		t.Errorf("legal terms = %v, want [特区]", cfg.LegalTerms)
	}
	if len(cfg.DomainTerms) != 18 {
		t.Errorf("domain terms = %d, want default 18 kept", len(cfg.DomainTerms))
	}
	if len(cfg.IrrelevancePatterns) != 3 {
		t.Errorf("irrelevance patterns = %d, want default 3 kept", len(cfg.IrrelevancePatterns))
	}
}

func TestLoadScoringConfig_MissingFile(t *testing.T) {
	_, err := LoadScoringConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadScoringConfig_InvalidYAML(t *testing.T) {
	path := writeScoringConfig(t, "legal_terms: [unclosed")

	if _, err := LoadScoringConfig(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
