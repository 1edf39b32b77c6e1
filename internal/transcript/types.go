package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleRespondent  Role = "respondent"
	RoleOther       Role = "other"
)

// ParseRole normalizes a raw speaker label from the source data. Unknown
// labels map to RoleOther rather than failing the load.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "interviewer", "moderator", "インタビュアー":
		return RoleInterviewer
	case "respondent", "interviewee", "対象者":
		return RoleRespondent
	default:
		return RoleOther
	}
}

// Message is a single interview utterance. Identity is (SessionID, MessageID),
// unique within a dataset; the loader rejects duplicates.
type Message struct {
	SessionID string
	MessageID string
	Timestamp time.Time
	Role      Role
	Content   string
}

// SessionMetadata describes one interview session. PolicyID may be empty, in
// which case the session is excluded from policy aggregation.
type SessionMetadata struct {
	SessionID   string
	PolicyID    string
	PolicyTitle string
	Title       string
}

// FormatMessage renders one transcript line as fed to the model. The
// leading [session/message] identity is what quotation lines must echo, so
// the citation pipeline can resolve what the model quotes.
func FormatMessage(m Message) string {
	return fmt.Sprintf("[%s/%s] [%s] %s: %s", m.SessionID, m.MessageID, m.Timestamp.Format("2006-01-02 15:04:05"), m.Role, m.Content)
}

// FormatTranscript renders messages as a transcript, one line per message.
func FormatTranscript(messages []Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = FormatMessage(m)
	}
	return strings.Join(lines, "\n")
}
