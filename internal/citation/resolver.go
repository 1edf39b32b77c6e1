package citation

import (
	"log/slog"

	"github.com/stphegia-org/intv-comp/internal/transcript"
)

// Resolver turns quoted messages into citation links. Every rendered quote
// must carry a resolvable URL, so unresolved lookups degrade to the
// configured fallback URL instead of failing.
type Resolver struct {
	repo        *Repository
	sessions    []transcript.SessionMetadata
	fallbackURL string
	logger      *slog.Logger
}

func NewResolver(repo *Repository, sessions []transcript.SessionMetadata, fallbackURL string, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, sessions: sessions, fallbackURL: fallbackURL, logger: logger}
}

// Resolve returns the citation link for one quoted message: the first
// listed document of the session's mapping that exists in the document
// table, else the fallback URL. The URL is never empty.
func (r *Resolver) Resolve(sessionID, messageID string) Link {
	if m, ok := r.repo.MappingForSession(sessionID); ok {
		for _, id := range m.DocIDs {
			if doc, ok := r.repo.DocumentByID(id); ok {
				return Link{
					SessionID:   sessionID,
					MessageID:   messageID,
					URL:         doc.URL,
					SourceLabel: doc.Title,
				}
			}
		}
	}
	r.logger.Debug("citation falls back to the default url",
		"session_id", sessionID,
		"message_id", messageID,
	)
	return Link{
		SessionID: sessionID,
		MessageID: messageID,
		URL:       r.fallbackURL,
		Fallback:  true,
	}
}

// ResolveForPolicy collects the primary document link of each session
// declaring the policy, in metadata order, deduplicated by document id.
// Zero links is a valid result; policy-level citations are never padded
// with fallbacks.
func (r *Resolver) ResolveForPolicy(policyID string) []Link {
	var links []Link
	seen := make(map[string]bool)
	for _, s := range r.sessions {
		if s.PolicyID != policyID {
			continue
		}
		m, ok := r.repo.MappingForSession(s.SessionID)
		if !ok {
			continue
		}
		for _, id := range m.DocIDs {
			doc, ok := r.repo.DocumentByID(id)
			if !ok {
				continue
			}
			if !seen[doc.DocID] {
				seen[doc.DocID] = true
				links = append(links, Link{
					SessionID:   s.SessionID,
					URL:         doc.URL,
					SourceLabel: doc.Title,
				})
			}
			break
		}
	}
	return links
}
