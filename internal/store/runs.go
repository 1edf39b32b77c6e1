package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is the audit row for one analysis run.
type RunRecord struct {
	ID                uuid.UUID
	Mode              string
	PolicyID          string
	StartedAt         time.Time
	FinishedAt        *time.Time
	TotalMessages     int
	KeptMessages      int
	ExcludedMessages  int
	Chunks            int
	Reports           int
	ResolvedCitations int
	FallbackCitations int
	Status            string
	ErrorText         string
}

// ReportRecord is the audit row for one rendered report document.
type ReportRecord struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	Unit      string
	FilePath  string
	Citations int
	Fallbacks int
	CreatedAt time.Time
}

// CreateRun opens an audit row for a run that has just started.
func (s *Store) CreateRun(ctx context.Context, mode, policyID string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_runs (id, mode, policy_id, started_at, status)
		VALUES ($1, $2, $3, now(), $4)`,
		id, mode, policyID, StatusRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// FinishRun closes the audit row with final counts and status.
func (s *Store) FinishRun(ctx context.Context, rec RunRecord) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE analysis_runs SET
			finished_at = now(),
			total_messages = $2,
			kept_messages = $3,
			excluded_messages = $4,
			chunks = $5,
			reports = $6,
			resolved_citations = $7,
			fallback_citations = $8,
			status = $9,
			error_text = $10
		WHERE id = $1`,
		rec.ID, rec.TotalMessages, rec.KeptMessages, rec.ExcludedMessages,
		rec.Chunks, rec.Reports, rec.ResolvedCitations, rec.FallbackCitations,
		rec.Status, rec.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// WriteReport records one rendered report document under its run.
func (s *Store) WriteReport(ctx context.Context, runID uuid.UUID, unit, filePath string, citations, fallbacks int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_reports (id, run_id, unit, file_path, citations, fallbacks)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, runID, unit, filePath, citations, fallbacks,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("write report: %w", err)
	}
	return id, nil
}

const runColumns = `id, mode, policy_id, started_at, finished_at,
	total_messages, kept_messages, excluded_messages, chunks, reports,
	resolved_citations, fallback_citations, status, error_text`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM analysis_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return runs, nil
}

// GetRun fetches a single run by id. The raw pgx.ErrNoRows is returned
// when the id is unknown so callers can map it to a not-found response.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE id = $1`,
		id,
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns the report rows of one run in creation order.
func (s *Store) ListReports(ctx context.Context, runID uuid.UUID) ([]ReportRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, unit, file_path, citations, fallbacks, created_at
		FROM analysis_reports
		WHERE run_id = $1
		ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []ReportRecord
	for rows.Next() {
		var r ReportRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.Unit, &r.FilePath, &r.Citations, &r.Fallbacks, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var r RunRecord
	err := row.Scan(
		&r.ID, &r.Mode, &r.PolicyID, &r.StartedAt, &r.FinishedAt,
		&r.TotalMessages, &r.KeptMessages, &r.ExcludedMessages, &r.Chunks, &r.Reports,
		&r.ResolvedCitations, &r.FallbackCitations, &r.Status, &r.ErrorText,
	)
	return r, err
}
