package policy

import (
	"sort"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

// Conversation collects every message that belongs to one policy, merged
// across all sessions declaring that policy id.
type Conversation struct {
	PolicyID string
	Title    string
	Messages []transcript.Message
}

// Build joins messages to their session metadata and groups them by the
// session's policy id. Sessions without a policy id are excluded entirely,
// as are messages whose session has no metadata row. Conversations appear
// in first-appearance order of the sessions input; each conversation's
// messages are stably sorted by timestamp, ties keeping input order.
//
// A non-empty policyID narrows the result to that one conversation. An
// unknown policyID yields an empty result, not an error; a declared policy
// with no surviving messages yields a conversation with zero messages so
// callers can tell the two cases apart.
func Build(messages []transcript.Message, sessions []transcript.SessionMetadata, policyID string) []Conversation {
	type group struct {
		title    string
		messages []transcript.Message
	}

	var order []string
	groups := make(map[string]*group)
	sessionPolicy := make(map[string]string)

	for _, s := range sessions {
		if _, ok := sessionPolicy[s.SessionID]; !ok {
			sessionPolicy[s.SessionID] = s.PolicyID
		}
		if s.PolicyID == "" {
			continue
		}
		g, ok := groups[s.PolicyID]
		if !ok {
			g = &group{}
			groups[s.PolicyID] = g
			order = append(order, s.PolicyID)
		}
		if g.title == "" && s.PolicyTitle != "" {
			g.title = s.PolicyTitle
		}
	}

	for _, m := range messages {
		pid := sessionPolicy[m.SessionID]
		if pid == "" {
			continue
		}
		groups[pid].messages = append(groups[pid].messages, m)
	}

	var out []Conversation
	for _, pid := range order {
		if policyID != "" && pid != policyID {
			continue
		}
		g := groups[pid]

		msgs := make([]transcript.Message, len(g.messages))
		copy(msgs, g.messages)
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		})

		title := g.title
		if title == "" {
			title = pid
		}
		out = append(out, Conversation{PolicyID: pid, Title: title, Messages: msgs})
	}
	return out
}
