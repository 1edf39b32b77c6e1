package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConvertCSVToJSON reads a CSV with a header row and writes a JSON array of
// string-keyed records, two-space indented. Parent directories of jsonPath
// are created as needed. Returns the number of records written.
func ConvertCSVToJSON(csvPath, jsonPath string) (int, error) {
	header, rows, err := readCSV(csvPath)
	if err != nil {
		return 0, err
	}

	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[strings.TrimSpace(col)] = row[i]
			}
		}
		records = append(records, rec)
	}

	if dir := filepath.Dir(jsonPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", jsonPath, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("encode %s: %w", jsonPath, err)
	}
	return len(records), nil
}
