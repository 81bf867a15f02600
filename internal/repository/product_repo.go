package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// ProductRepository handles product (contract) database operations
type ProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{db: db, logger: logger}
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (mandate_id, category, plan_ident, company, premium_cents, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		product.MandateID,
		product.Category,
		product.PlanIdent,
		product.Company,
		product.PremiumCents,
		product.State,
		product.StartedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	product.ID = id
	return nil
}

// GetByID retrieves a product by ID; returns nil when not found
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	query := `
		SELECT id, mandate_id, category, plan_ident, company, premium_cents, state, started_at, created_at
		FROM products
		WHERE id = ?
	`

	var product entity.Product
	var startedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.MandateID,
		&product.Category,
		&product.PlanIdent,
		&product.Company,
		&product.PremiumCents,
		&product.State,
		&startedAt,
		&product.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if startedAt.Valid {
		product.StartedAt = &startedAt.Time
	}
	return &product, nil
}

// ListByMandate returns all products owned by a mandate
func (r *ProductRepository) ListByMandate(ctx context.Context, mandateID int64) ([]*entity.Product, error) {
	query := `
		SELECT id, mandate_id, category, plan_ident, company, premium_cents, state, started_at, created_at
		FROM products
		WHERE mandate_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, mandateID)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Int64("mandate_id", mandateID), zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		var product entity.Product
		var startedAt sql.NullTime
		if err := rows.Scan(
			&product.ID,
			&product.MandateID,
			&product.Category,
			&product.PlanIdent,
			&product.Company,
			&product.PremiumCents,
			&product.State,
			&startedAt,
			&product.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if startedAt.Valid {
			product.StartedAt = &startedAt.Time
		}
		products = append(products, &product)
	}
	return products, rows.Err()
}

// MarkCanceled transitions the product into the canceled state; a
// product already canceled stays canceled
func (r *ProductRepository) MarkCanceled(ctx context.Context, productID int64) error {
	query := `UPDATE products SET state = ? WHERE id = ? AND state != ?`

	if _, err := r.db.ExecContext(ctx, query, entity.ProductStateCanceled, productID, entity.ProductStateCanceled); err != nil {
		r.logger.Error("Failed to cancel product", zap.Int64("product_id", productID), zap.Error(err))
		return fmt.Errorf("failed to cancel product: %w", err)
	}
	return nil
}
