package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id UUID PRIMARY KEY,
		mode TEXT NOT NULL,
		policy_id TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		total_messages INT NOT NULL DEFAULT 0,
		kept_messages INT NOT NULL DEFAULT 0,
		excluded_messages INT NOT NULL DEFAULT 0,
		chunks INT NOT NULL DEFAULT 0,
		reports INT NOT NULL DEFAULT 0,
		resolved_citations INT NOT NULL DEFAULT 0,
		fallback_citations INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running',
		error_text TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_reports (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		unit TEXT NOT NULL,
		file_path TEXT NOT NULL,
		citations INT NOT NULL DEFAULT 0,
		fallbacks INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS analysis_reports_run_id_idx ON analysis_reports (run_id)`,
}

// EnsureSchema creates the audit tables when they do not exist yet; the
// service owns its schema and needs no external migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
