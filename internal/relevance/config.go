package relevance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultThreshold is the relevance score at or below which messages are
// excluded.
const DefaultThreshold = 0.3

// ScoringConfig holds the keyword sets and irrelevance patterns driving the
// scorer. The three keyword categories are disjoint; scoring counts distinct
// matches across all of them.
type ScoringConfig struct {
	LegalTerms       []string `yaml:"legal_terms"`
	DomainTerms      []string `yaml:"domain_terms"`
	OperationalTerms []string `yaml:"operational_terms"`

	// IrrelevancePatterns are full-match regular expressions checked against
	// the trimmed text before any keyword scanning; a match scores 0.1.
	IrrelevancePatterns []string `yaml:"irrelevance_patterns"`
}

// Keywords returns all categories flattened, in declaration order.
func (c ScoringConfig) Keywords() []string {
	out := make([]string, 0, len(c.LegalTerms)+len(c.DomainTerms)+len(c.OperationalTerms))
	out = append(out, c.LegalTerms...)
	out = append(out, c.DomainTerms...)
	out = append(out, c.OperationalTerms...)
	return out
}

// DefaultScoringConfig returns the stock configuration for the bill-of-lading
// digitization study.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		LegalTerms: []string{
			"法案", "法律", "制度", "規制", "政策", "法整備", "立法", "条文", "改正", "施行",
		},
		DomainTerms: []string{
			"船荷証券", "B/L", "BL", "bill of lading", "電子化", "デジタル化", "ペーパーレス",
			"貿易", "輸出", "輸入", "通関", "税関",
			"荷主", "運送", "船会社", "フォワーダー", "物流", "国際取引",
		},
		OperationalTerms: []string{
			"実務", "業務", "手続き", "作業", "プロセス", "フロー", "運用",
			"システム", "セキュリティ", "リスク", "コスト", "効率",
			"課題", "問題", "懸念", "不安", "改善", "提案", "対策", "検討",
			"賛成", "反対", "必要", "不要", "有効", "無効",
		},
		IrrelevancePatterns: []string{
			`^(はい|いいえ|うん|ええ|そう|なるほど|わかりました|了解|OK)$`,
			`^(あ+|え+|お+|う+)$`,
			`^(知らない|分からない|わからない|聞いたことがない|初めて聞)([。．.!！?？\s]*)$`,
		},
	}
}

// LoadScoringConfig reads a YAML keyword override. Omitted fields keep their
// defaults, so a project file may replace just one category.
func LoadScoringConfig(path string) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scoring config: %w", err)
	}

	var override ScoringConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, fmt.Errorf("parse scoring config %s: %w", path, err)
	}

	if override.LegalTerms != nil {
		cfg.LegalTerms = override.LegalTerms
	}
	if override.DomainTerms != nil {
		cfg.DomainTerms = override.DomainTerms
	}
	if override.OperationalTerms != nil {
		cfg.OperationalTerms = override.OperationalTerms
	}
	if override.IrrelevancePatterns != nil {
		cfg.IrrelevancePatterns = override.IrrelevancePatterns
	}
	return cfg, nil
}
