package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// AdviceRepository handles advice record database operations
type AdviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdviceRepository creates a new advice repository
func NewAdviceRepository(db *sql.DB, logger *zap.Logger) *AdviceRepository {
	return &AdviceRepository{db: db, logger: logger}
}

// Create inserts a new advice record
func (r *AdviceRepository) Create(ctx context.Context, record *entity.AdviceRecord) error {
	query := `
		INSERT INTO advice_records (mandate_id, product_id, rule_id, content, call_to_action, valid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		record.MandateID,
		record.ProductID,
		record.RuleID,
		record.Content,
		record.CallToAction,
		record.Valid,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create advice record", zap.Error(err))
		return fmt.Errorf("failed to create advice record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

// MarkValid flips an advice record back to valid
func (r *AdviceRepository) MarkValid(ctx context.Context, id int64) error {
	query := `UPDATE advice_records SET valid = 1 WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.logger.Error("Failed to mark advice valid", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark advice valid: %w", err)
	}
	return nil
}

// MarkInvalid flips an advice record to invalid (superseded)
func (r *AdviceRepository) MarkInvalid(ctx context.Context, id int64) error {
	query := `UPDATE advice_records SET valid = 0 WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.logger.Error("Failed to mark advice invalid", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark advice invalid: %w", err)
	}
	return nil
}

// LatestInvalidByProduct returns the most recent superseded advice for
// a product; nil when none exists
func (r *AdviceRepository) LatestInvalidByProduct(ctx context.Context, productID int64) (*entity.AdviceRecord, error) {
	query := `
		SELECT id, mandate_id, product_id, rule_id, content, call_to_action, valid, created_at
		FROM advice_records
		WHERE product_id = ? AND valid = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	record, err := r.scanOne(r.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		r.logger.Error("Failed to get latest invalid advice", zap.Int64("product_id", productID), zap.Error(err))
		return nil, err
	}
	return record, nil
}

// ListByMandateSince returns advice records created for a mandate since
// the given time, newest first
func (r *AdviceRepository) ListByMandateSince(ctx context.Context, mandateID int64, since time.Time) ([]*entity.AdviceRecord, error) {
	query := `
		SELECT id, mandate_id, product_id, rule_id, content, call_to_action, valid, created_at
		FROM advice_records
		WHERE mandate_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, mandateID, since)
	if err != nil {
		r.logger.Error("Failed to list advice records", zap.Int64("mandate_id", mandateID), zap.Error(err))
		return nil, fmt.Errorf("failed to list advice records: %w", err)
	}
	defer rows.Close()

	var records []*entity.AdviceRecord
	for rows.Next() {
		var record entity.AdviceRecord
		if err := rows.Scan(
			&record.ID,
			&record.MandateID,
			&record.ProductID,
			&record.RuleID,
			&record.Content,
			&record.CallToAction,
			&record.Valid,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan advice record: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

func (r *AdviceRepository) scanOne(row *sql.Row) (*entity.AdviceRecord, error) {
	var record entity.AdviceRecord
	err := row.Scan(
		&record.ID,
		&record.MandateID,
		&record.ProductID,
		&record.RuleID,
		&record.Content,
		&record.CallToAction,
		&record.Valid,
		&record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan advice record: %w", err)
	}
	return &record, nil
}
