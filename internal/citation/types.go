package citation

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateDocID rejects a reference file that defines the same
	// document id twice.
	ErrDuplicateDocID = errors.New("duplicate doc id")

	// ErrSourcesRequired reports a run that mandates citations while no
	// reference documents are loaded.
	ErrSourcesRequired = errors.New("citations required but no external sources are loaded")
)

// Document is one entry of the external reference file.
type Document struct {
	DocID       string
	Title       string
	URL         string
	Description string
}

// SessionMapping links a session to the reference documents backing it.
type SessionMapping struct {
	SessionID   string
	DocIDs      []string
	Description string
}

// Link is the citation target for one quoted message. Fallback marks links
// that degraded to the configured default URL, for coverage auditing.
type Link struct {
	SessionID   string
	MessageID   string
	URL         string
	SourceLabel string
	Fallback    bool
}

// Repository holds the reference documents and session mappings. It is
// read-only after construction, so lookups are safe from concurrent
// rendering tasks.
type Repository struct {
	documents map[string]Document
	mappings  map[string]SessionMapping
}

// NewRepository indexes documents and mappings. A duplicate document id
// rejects the whole load; silently overwriting would make citation
// resolution ambiguous. A repeated session keeps its first mapping.
func NewRepository(docs []Document, mappings []SessionMapping) (*Repository, error) {
	r := &Repository{
		documents: make(map[string]Document, len(docs)),
		mappings:  make(map[string]SessionMapping, len(mappings)),
	}
	for _, d := range docs {
		if _, ok := r.documents[d.DocID]; ok {
			return nil, fmt.Errorf("reference file: %w %s", ErrDuplicateDocID, d.DocID)
		}
		r.documents[d.DocID] = d
	}
	for _, m := range mappings {
		if _, ok := r.mappings[m.SessionID]; ok {
			continue
		}
		r.mappings[m.SessionID] = m
	}
	return r, nil
}

// EmptyRepository returns a repository with no documents; every resolution
// against it degrades to the fallback URL.
func EmptyRepository() *Repository {
	return &Repository{
		documents: make(map[string]Document),
		mappings:  make(map[string]SessionMapping),
	}
}

func (r *Repository) DocumentByID(docID string) (Document, bool) {
	d, ok := r.documents[docID]
	return d, ok
}

func (r *Repository) MappingForSession(sessionID string) (SessionMapping, bool) {
	m, ok := r.mappings[sessionID]
	return m, ok
}

func (r *Repository) DocumentCount() int { return len(r.documents) }

func (r *Repository) MappingCount() int { return len(r.mappings) }
