package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/pkg/database"
	"go.uber.org/zap"
)

// OpportunityRepository handles opportunity database operations
type OpportunityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository(db *sql.DB, logger *zap.Logger) *OpportunityRepository {
	return &OpportunityRepository{db: db, logger: logger}
}

// Create inserts a new opportunity
func (r *OpportunityRepository) Create(ctx context.Context, opportunity *entity.Opportunity) error {
	query := `
		INSERT INTO opportunities (mandate_id, response_id, category, state, admin_id, automated)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		opportunity.MandateID,
		opportunity.ResponseID,
		opportunity.Category,
		opportunity.State,
		opportunity.AdminID,
		opportunity.Automated,
	)
	if err != nil {
		r.logger.Error("Failed to create opportunity", zap.Error(err))
		return fmt.Errorf("failed to create opportunity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	opportunity.ID = id
	return nil
}

// ByResponse returns the opportunity attached to a questionnaire
// response; nil when none exists
func (r *OpportunityRepository) ByResponse(ctx context.Context, responseID int64) (*entity.Opportunity, error) {
	query := `
		SELECT id, mandate_id, response_id, category, state, admin_id, automated, created_at, updated_at
		FROM opportunities
		WHERE response_id = ?
	`

	var opportunity entity.Opportunity
	var adminID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, responseID).Scan(
		&opportunity.ID,
		&opportunity.MandateID,
		&opportunity.ResponseID,
		&opportunity.Category,
		&opportunity.State,
		&adminID,
		&opportunity.Automated,
		&opportunity.CreatedAt,
		&opportunity.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get opportunity", zap.Int64("response_id", responseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	if adminID.Valid {
		opportunity.AdminID = &adminID.Int64
	}
	return &opportunity, nil
}

// MarkAutomated assigns the admin and advances the opportunity in one update
func (r *OpportunityRepository) MarkAutomated(ctx context.Context, id int64, adminID int64, state string) error {
	query := `
		UPDATE opportunities
		SET automated = 1, admin_id = ?, state = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, adminID, state, id); err != nil {
		r.logger.Error("Failed to mark opportunity automated", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark opportunity automated: %w", err)
	}
	return nil
}

// OfferRepository persists offers and their options
type OfferRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewOfferRepository creates a new offer repository
func NewOfferRepository(db *database.DB, logger *zap.Logger) *OfferRepository {
	return &OfferRepository{db: db, logger: logger}
}

// Create writes the offer and its options in one transaction
func (r *OfferRepository) Create(ctx context.Context, offer *entity.Offer) error {
	features, err := json.Marshal(offer.DisplayedCoverageFeatures)
	if err != nil {
		return fmt.Errorf("failed to marshal coverage features: %w", err)
	}

	return r.db.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO offers (opportunity_id, mandate_id, note_to_customer, coverage_features, comparison_document_path)
			VALUES (?, ?, ?, ?, ?)
		`,
			offer.OpportunityID,
			offer.MandateID,
			offer.NoteToCustomer,
			string(features),
			offer.ComparisonDocumentPath,
		)
		if err != nil {
			return fmt.Errorf("insert offer: %w", err)
		}

		offerID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get offer id: %w", err)
		}
		offer.ID = offerID

		for i := range offer.Options {
			option := &offer.Options[i]
			option.OfferID = offerID
			optResult, err := tx.ExecContext(ctx, `
				INSERT INTO offer_options (offer_id, plan_ident, option_type, position)
				VALUES (?, ?, ?, ?)
			`, offerID, option.PlanIdent, option.OptionType, option.Position)
			if err != nil {
				return fmt.Errorf("insert offer option %q: %w", option.PlanIdent, err)
			}
			optionID, err := optResult.LastInsertId()
			if err != nil {
				return fmt.Errorf("get option id: %w", err)
			}
			option.ID = optionID
		}
		return nil
	})
}

// PlanRepository resolves plans by ident
type PlanRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *sql.DB, logger *zap.Logger) *PlanRepository {
	return &PlanRepository{db: db, logger: logger}
}

// Create inserts a new plan
func (r *PlanRepository) Create(ctx context.Context, plan *entity.Plan) error {
	query := `
		INSERT INTO plans (ident, name, category, company, premium_cents, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		plan.Ident, plan.Name, plan.Category, plan.Company, plan.PremiumCents, plan.Active)
	if err != nil {
		r.logger.Error("Failed to create plan", zap.Error(err))
		return fmt.Errorf("failed to create plan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	plan.ID = id
	return nil
}

// ByIdent returns the plan with the given ident; nil when unknown
func (r *PlanRepository) ByIdent(ctx context.Context, ident string) (*entity.Plan, error) {
	query := `
		SELECT id, ident, name, category, company, premium_cents, active, created_at
		FROM plans
		WHERE ident = ?
	`

	var plan entity.Plan
	err := r.db.QueryRowContext(ctx, query, ident).Scan(
		&plan.ID,
		&plan.Ident,
		&plan.Name,
		&plan.Category,
		&plan.Company,
		&plan.PremiumCents,
		&plan.Active,
		&plan.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get plan", zap.String("ident", ident), zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}
