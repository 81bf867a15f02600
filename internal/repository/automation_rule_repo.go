package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// AutomationRuleRepository loads externally configured offer automation
// rules. The matcher only reads them.
type AutomationRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAutomationRuleRepository creates a new automation rule repository
func NewAutomationRuleRepository(db *sql.DB, logger *zap.Logger) *AutomationRuleRepository {
	return &AutomationRuleRepository{db: db, logger: logger}
}

// Create inserts a new automation rule
func (r *AutomationRuleRepository) Create(ctx context.Context, rule *entity.OfferAutomationRule) error {
	answerValues, err := json.Marshal(rule.AnswerValues)
	if err != nil {
		return fmt.Errorf("failed to marshal answer values: %w", err)
	}
	planIdents, err := json.Marshal(rule.PlanIdents)
	if err != nil {
		return fmt.Errorf("failed to marshal plan idents: %w", err)
	}
	optionTypes, err := json.Marshal(rule.PlanOptionTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal option types: %w", err)
	}
	features, err := json.Marshal(rule.CoverageFeatureIdents)
	if err != nil {
		return fmt.Errorf("failed to marshal coverage features: %w", err)
	}

	query := `
		INSERT INTO offer_automation_rules
			(category, position, active, answer_values, plan_idents, plan_option_types, coverage_feature_idents, note_to_customer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.Category,
		rule.Position,
		rule.Active,
		string(answerValues),
		string(planIdents),
		string(optionTypes),
		string(features),
		rule.NoteToCustomer,
	)
	if err != nil {
		r.logger.Error("Failed to create automation rule", zap.Error(err))
		return fmt.Errorf("failed to create automation rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = id
	return nil
}

// ActiveByCategory returns the category's active rules in configuration
// (position) order
func (r *AutomationRuleRepository) ActiveByCategory(ctx context.Context, category string) ([]*entity.OfferAutomationRule, error) {
	query := `
		SELECT id, category, position, active, answer_values, plan_idents, plan_option_types, coverage_feature_idents, note_to_customer, created_at
		FROM offer_automation_rules
		WHERE category = ? AND active = 1
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		r.logger.Error("Failed to list automation rules", zap.String("category", category), zap.Error(err))
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.OfferAutomationRule
	for rows.Next() {
		var rule entity.OfferAutomationRule
		var answerValues, planIdents, optionTypes, features string
		if err := rows.Scan(
			&rule.ID,
			&rule.Category,
			&rule.Position,
			&rule.Active,
			&answerValues,
			&planIdents,
			&optionTypes,
			&features,
			&rule.NoteToCustomer,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}

		if err := json.Unmarshal([]byte(answerValues), &rule.AnswerValues); err != nil {
			return nil, fmt.Errorf("rule %d: bad answer_values: %w", rule.ID, err)
		}
		if err := json.Unmarshal([]byte(planIdents), &rule.PlanIdents); err != nil {
			return nil, fmt.Errorf("rule %d: bad plan_idents: %w", rule.ID, err)
		}
		if err := json.Unmarshal([]byte(optionTypes), &rule.PlanOptionTypes); err != nil {
			return nil, fmt.Errorf("rule %d: bad plan_option_types: %w", rule.ID, err)
		}
		if err := json.Unmarshal([]byte(features), &rule.CoverageFeatureIdents); err != nil {
			return nil, fmt.Errorf("rule %d: bad coverage_feature_idents: %w", rule.ID, err)
		}

		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
