package transcript

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
)

// Messages CSV columns.
const (
	colSessionID = "session_id"
	colMessageID = "message_id"
	colRole      = "role"
	colContent   = "content"
	colTimestamp = "timestamp"
)

// Sessions CSV optional columns.
const (
	colPolicyID    = "policy_id"
	colPolicyTitle = "policy_title"
	colTitle       = "title"
)

// timestampLayouts are the accepted timestamp formats, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
}

// LoadMessages reads the messages CSV. Required columns: session_id,
// message_id, role, content, timestamp. A duplicate (session_id, message_id)
// pair or an unparsable timestamp rejects the whole file.
func LoadMessages(path string) ([]Message, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(header, []string{colSessionID, colMessageID, colRole, colContent, colTimestamp}, "messages csv")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	msgs := make([]Message, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 2 // 1-based, after the header row
		sessionID := strings.TrimSpace(row[idx[colSessionID]])
		messageID := strings.TrimSpace(row[idx[colMessageID]])
		if sessionID == "" {
			return nil, fmt.Errorf("messages csv row %d: empty %s", rowNum, colSessionID)
		}
		if messageID == "" {
			return nil, fmt.Errorf("messages csv row %d: empty %s", rowNum, colMessageID)
		}

		key := sessionID + "\x00" + messageID
		if seen[key] {
			return nil, fmt.Errorf("messages csv row %d: duplicate message identity %s/%s", rowNum, sessionID, messageID)
		}
		seen[key] = true

		ts, err := parseTimestamp(row[idx[colTimestamp]])
		if err != nil {
			return nil, fmt.Errorf("messages csv row %d column %s: %w", rowNum, colTimestamp, err)
		}

		msgs = append(msgs, Message{
			SessionID: sessionID,
			MessageID: messageID,
			Timestamp: ts,
			Role:      ParseRole(row[idx[colRole]]),
			Content:   row[idx[colContent]],
		})
	}
	return msgs, nil
}

// LoadSessions reads the sessions CSV. Only session_id is required;
// policy_id, policy_title, and title are optional. A repeated session_id
// keeps the first row.
func LoadSessions(path string) ([]SessionMetadata, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(header, []string{colSessionID}, "sessions csv")
	if err != nil {
		return nil, err
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seen := make(map[string]bool, len(rows))
	sessions := make([]SessionMetadata, 0, len(rows))
	for i, row := range rows {
		sessionID := get(row, colSessionID)
		if sessionID == "" {
			return nil, fmt.Errorf("sessions csv row %d: empty %s", i+2, colSessionID)
		}
		if seen[sessionID] {
			continue
		}
		seen[sessionID] = true

		sessions = append(sessions, SessionMetadata{
			SessionID:   sessionID,
			PolicyID:    get(row, colPolicyID),
			PolicyTitle: get(row, colPolicyTitle),
			Title:       get(row, colTitle),
		})
	}
	return sessions, nil
}

// SessionOrder returns session IDs in analysis order: the sessions file is
// authoritative, and sessions appearing only in the messages file are
// appended in first-appearance order.
func SessionOrder(sessions []SessionMetadata, messages []Message) []string {
	order := make([]string, 0, len(sessions))
	known := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		order = append(order, s.SessionID)
		known[s.SessionID] = true
	}
	for _, m := range messages {
		if !known[m.SessionID] {
			order = append(order, m.SessionID)
			known[m.SessionID] = true
		}
	}
	return order
}

// SelectSessions limits the analyzed sessions. With sample set, limit
// sessions are drawn uniformly at random; otherwise the first limit IDs are
// kept. limit <= 0 keeps everything. rng may be nil, in which case a
// time-seeded source is used.
func SelectSessions(ids []string, limit int, sample bool, rng *rand.Rand) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	if limit <= 0 {
		return out
	}
	if limit > len(out) {
		limit = len(out)
	}
	if sample {
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out[:limit]
}

func parseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file, header row required", path)
	}

	header := records[0]
	// Excel exports prefix the first header cell with a BOM.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	return header, records[1:], nil
}

func columnIndex(header []string, required []string, label string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing required columns: %s", label, strings.Join(missing, ", "))
	}
	return idx, nil
}
