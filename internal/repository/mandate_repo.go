package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// MandateRepository handles mandate database operations
type MandateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMandateRepository creates a new mandate repository
func NewMandateRepository(db *sql.DB, logger *zap.Logger) *MandateRepository {
	return &MandateRepository{db: db, logger: logger}
}

// Create inserts a new mandate
func (r *MandateRepository) Create(ctx context.Context, mandate *entity.Mandate) error {
	query := `
		INSERT INTO mandates (first_name, last_name, email, last_advised_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		mandate.FirstName, mandate.LastName, mandate.Email, mandate.LastAdvisedAt)
	if err != nil {
		r.logger.Error("Failed to create mandate", zap.Error(err))
		return fmt.Errorf("failed to create mandate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	mandate.ID = id
	return nil
}

// GetByID retrieves a mandate by ID; returns nil when not found
func (r *MandateRepository) GetByID(ctx context.Context, id int64) (*entity.Mandate, error) {
	query := `
		SELECT id, first_name, last_name, email, last_advised_at, created_at, updated_at
		FROM mandates
		WHERE id = ?
	`

	var mandate entity.Mandate
	var lastAdvisedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&mandate.ID,
		&mandate.FirstName,
		&mandate.LastName,
		&mandate.Email,
		&lastAdvisedAt,
		&mandate.CreatedAt,
		&mandate.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get mandate", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get mandate: %w", err)
	}

	if lastAdvisedAt.Valid {
		mandate.LastAdvisedAt = &lastAdvisedAt.Time
	}
	return &mandate, nil
}

// SetLastAdvisedAt moves the mandate's advising timestamp
func (r *MandateRepository) SetLastAdvisedAt(ctx context.Context, mandateID int64, at time.Time) error {
	query := `UPDATE mandates SET last_advised_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, at, mandateID); err != nil {
		r.logger.Error("Failed to set last_advised_at", zap.Int64("mandate_id", mandateID), zap.Error(err))
		return fmt.Errorf("failed to set last_advised_at: %w", err)
	}
	return nil
}
