package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// RecheckRepository stores deferred advice dispatch attempts so they
// survive restarts
type RecheckRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecheckRepository creates a new recheck repository
func NewRecheckRepository(db *sql.DB, logger *zap.Logger) *RecheckRepository {
	return &RecheckRepository{db: db, logger: logger}
}

// Schedule records a deferred dispatch for a product. An existing
// pending recheck for the same product is replaced, keeping one row
// per product.
func (r *RecheckRepository) Schedule(ctx context.Context, mandateID, productID int64, runAt time.Time) error {
	query := `
		INSERT INTO advice_rechecks (mandate_id, product_id, run_at)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET run_at = excluded.run_at
	`

	if _, err := r.db.ExecContext(ctx, query, mandateID, productID, runAt); err != nil {
		r.logger.Error("Failed to schedule advice recheck",
			zap.Int64("product_id", productID), zap.Error(err))
		return fmt.Errorf("failed to schedule advice recheck: %w", err)
	}
	return nil
}

// Due returns up to limit rechecks whose run_at has passed, oldest first
func (r *RecheckRepository) Due(ctx context.Context, now time.Time, limit int) ([]*entity.AdviceRecheck, error) {
	query := `
		SELECT id, mandate_id, product_id, run_at, created_at
		FROM advice_rechecks
		WHERE run_at <= ?
		ORDER BY run_at
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		r.logger.Error("Failed to load due rechecks", zap.Error(err))
		return nil, fmt.Errorf("failed to load due rechecks: %w", err)
	}
	defer rows.Close()

	var rechecks []*entity.AdviceRecheck
	for rows.Next() {
		var recheck entity.AdviceRecheck
		if err := rows.Scan(
			&recheck.ID,
			&recheck.MandateID,
			&recheck.ProductID,
			&recheck.RunAt,
			&recheck.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recheck: %w", err)
		}
		rechecks = append(rechecks, &recheck)
	}
	return rechecks, rows.Err()
}

// Delete removes a processed recheck
func (r *RecheckRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM advice_rechecks WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete recheck", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete recheck: %w", err)
	}
	return nil
}
