package citation

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	documentPattern = regexp.MustCompile(`(?s)-\s*\*\*文書ID\*\*:\s*(\S+).*?-\s*\*\*タイトル\*\*:\s*([^\n]+).*?-\s*\*\*URL\*\*:\s*(\S+).*?-\s*\*\*説明\*\*:\s*([^\n]+)`)
	mappingPattern  = regexp.MustCompile(`(?s)###\s*セッション:\s*(\S+).*?-\s*\*\*関連文書\*\*:\s*([^\n]+).*?-\s*\*\*説明\*\*:\s*([^\n]+)`)
)

// Load reads the Markdown reference file into a repository. A missing or
// unreadable file degrades to an empty repository with a warning so runs
// without external sources still produce fallback citations. A duplicate
// document id is a data integrity error and rejects the load outright.
func Load(path string, logger *slog.Logger) (*Repository, error) {
	if path == "" {
		return EmptyRepository(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("external sources file not found, citations will use the fallback URL", "path", path)
		} else {
			logger.Warn("external sources file unreadable, citations will use the fallback URL", "path", path, "error", err)
		}
		return EmptyRepository(), nil
	}

	docs, mappings := parseMarkdown(string(data))
	repo, err := NewRepository(docs, mappings)
	if err != nil {
		return nil, err
	}
	if repo.DocumentCount() == 0 {
		logger.Warn("no documents found in the external sources file, citations will use the fallback URL", "path", path)
		return repo, nil
	}

	logger.Info("external sources loaded",
		"path", path,
		"documents", repo.DocumentCount(),
		"session_mappings", repo.MappingCount())
	return repo, nil
}

func parseMarkdown(content string) ([]Document, []SessionMapping) {
	var docs []Document
	for _, m := range documentPattern.FindAllStringSubmatch(content, -1) {
		docs = append(docs, Document{
			DocID:       strings.TrimSpace(m[1]),
			Title:       strings.TrimSpace(m[2]),
			URL:         strings.TrimSpace(m[3]),
			Description: strings.TrimSpace(m[4]),
		})
	}

	var mappings []SessionMapping
	for _, m := range mappingPattern.FindAllStringSubmatch(content, -1) {
		mappings = append(mappings, SessionMapping{
			SessionID:   strings.TrimSpace(m[1]),
			DocIDs:      splitDocIDs(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}

	return docs, mappings
}

// splitDocIDs accepts both half-width and Japanese comma separators.
func splitDocIDs(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、'
	})
	var ids []string
	for _, f := range fields {
		if id := strings.TrimSpace(f); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
