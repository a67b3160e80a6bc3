// Package repository provides database operations for the analysis service.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

// ErrNotFound indicates no job history row exists for the requested id.
var ErrNotFound = errors.New("job history entry not found")

// JobHistoryEntry is one persisted terminal job outcome.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type JobHistoryEntry struct {
	JobID        string                 `json:"job_id"`
	Mode         models.JobMode         `json:"mode"`
	VideoIDs     []string               `json:"video_ids"`
	Brands       []string               `json:"brands"`
	State        models.JobState        `json:"state"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  time.Time              `json:"completed_at"`
}

// Repository persists terminal analysis job outcomes.
type Repository struct {
	db *pgxpool.Pool
}

// New creates a new Repository instance with the provided database connection pool.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordOutcome inserts the terminal outcome of an analysis job. Recording is
// idempotent on job id: a second settle attempt for the same job is a no-op.
func (r *Repository) RecordOutcome(ctx context.Context, job models.AnalysisJob, state models.JobState, errorMessage string, result *models.AnalysisResult) error {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	query := `
		INSERT INTO analysis.job_history
		(job_id, mode, video_ids, brands, state, error_message, result, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (job_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		job.JobID, job.Mode, job.RequestedVideoIDs, job.RequestedBrands,
		state, errorMessage, resultJSON, job.CreatedAt, time.Now(),
	)
	return err
}

// GetJobHistory retrieves one persisted outcome by job id.
func (r *Repository) GetJobHistory(ctx context.Context, jobID string) (*JobHistoryEntry, error) {
	query := `
		SELECT job_id, mode, video_ids, brands, state, error_message, result, created_at, completed_at
		FROM analysis.job_history
		WHERE job_id = $1
	`
	entry, err := r.scanEntry(r.db.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, err
	}
	return entry, nil
}

// ListRecentJobs retrieves the most recently completed jobs, newest first.
func (r *Repository) ListRecentJobs(ctx context.Context, limit int) ([]JobHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT job_id, mode, video_ids, brands, state, error_message, result, created_at, completed_at
		FROM analysis.job_history
		ORDER BY completed_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JobHistoryEntry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// CountByState returns how many persisted jobs reached each terminal state.
func (r *Repository) CountByState(ctx context.Context) (map[models.JobState]int, error) {
	query := `
		SELECT state, COUNT(*)
		FROM analysis.job_history
		GROUP BY state
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobState]int)
	for rows.Next() {
		var state models.JobState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

// DeleteOlderThan removes history entries completed before the cutoff and
// returns the number of rows deleted.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM analysis.job_history WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection health.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) scanEntry(row pgx.Row) (*JobHistoryEntry, error) {
	var entry JobHistoryEntry
	var errorMessage *string
	var resultJSON []byte

	if err := row.Scan(
		&entry.JobID, &entry.Mode, &entry.VideoIDs, &entry.Brands,
		&entry.State, &errorMessage, &resultJSON, &entry.CreatedAt, &entry.CompletedAt,
	); err != nil {
		return nil, err
	}

	if errorMessage != nil {
		entry.ErrorMessage = *errorMessage
	}
	if len(resultJSON) > 0 {
		var result models.AnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("parse stored result: %w", err)
		}
		if result.Single != nil || result.Combined != nil {
			entry.Result = &result
		}
	}
	return &entry, nil
}
