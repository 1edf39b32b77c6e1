package analyzer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadReferences concatenates the supplementary material files (*.txt, *.md)
// under dir into one prompt block, sorted by file name. A missing directory
// is not an error: analyses simply run without supplementary material.
func LoadReferences(dir string, logger *slog.Logger) string {
	if dir == "" {
		return ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Info("references directory not readable, continuing without reference materials", "dir", dir, "error", err)
		return ""
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var materials []string
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("reference file unreadable, skipping", "file", name, "error", err)
			continue
		}
		materials = append(materials, fmt.Sprintf("# %s\n\n%s", name, string(content)))
		logger.Debug("reference file loaded", "file", name)
	}
	if len(materials) == 0 {
		logger.Info("no reference materials found", "dir", dir)
		return ""
	}

	logger.Info("reference materials loaded", "dir", dir, "files", len(materials))
	return strings.Join(materials, "\n\n---\n\n")
}
