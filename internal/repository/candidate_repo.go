package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// CandidateRepository handles cancellation candidate database operations.
// The sweep only reads; the finalizer deletes.
type CandidateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *sql.DB, logger *zap.Logger) *CandidateRepository {
	return &CandidateRepository{db: db, logger: logger}
}

// Create inserts a new candidate when a switch workflow item is opened
func (r *CandidateRepository) Create(ctx context.Context, candidate *entity.CancellationCandidate) error {
	query := `
		INSERT INTO cancellation_candidates (parent_key, timeout_at, resolved_kind)
		VALUES (?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		candidate.ParentKey, candidate.TimeoutAt, candidate.ResolvedKind)
	if err != nil {
		r.logger.Error("Failed to create candidate", zap.Error(err))
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	candidate.ID = id
	return nil
}

// OlderThan returns up to limit candidates whose timeout_at lies before
// cutoff, oldest first
func (r *CandidateRepository) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.CancellationCandidate, error) {
	query := `
		SELECT id, parent_key, timeout_at, resolved_kind, created_at
		FROM cancellation_candidates
		WHERE timeout_at < ?
		ORDER BY timeout_at, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to fetch timed-out candidates", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch timed-out candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*entity.CancellationCandidate
	for rows.Next() {
		var candidate entity.CancellationCandidate
		if err := rows.Scan(
			&candidate.ID,
			&candidate.ParentKey,
			&candidate.TimeoutAt,
			&candidate.ResolvedKind,
			&candidate.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, &candidate)
	}
	return candidates, rows.Err()
}

// MarkResolved records that an outcome arrived for the candidate
func (r *CandidateRepository) MarkResolved(ctx context.Context, id int64, kind string) error {
	query := `UPDATE cancellation_candidates SET resolved_kind = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, kind, id); err != nil {
		r.logger.Error("Failed to mark candidate resolved", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark candidate resolved: %w", err)
	}
	return nil
}

// Delete removes a candidate; deleting a missing candidate is a no-op
func (r *CandidateRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cancellation_candidates WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete candidate", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	return nil
}
