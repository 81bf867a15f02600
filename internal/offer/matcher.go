package offer

import (
	"context"
	"fmt"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/internal/notification"
	"go.uber.org/zap"
)

// RuleRepository loads automation rules. ActiveByCategory must return
// rules in configuration (position) order.
type RuleRepository interface {
	ActiveByCategory(ctx context.Context, category string) ([]*entity.OfferAutomationRule, error)
}

// AnswerRepository reads a response's answers.
type AnswerRepository interface {
	ListByResponse(ctx context.Context, responseID int64) ([]*entity.Answer, error)
}

// OpportunityRepository reads and finalizes the workflow entity an
// automated offer attaches to.
type OpportunityRepository interface {
	ByResponse(ctx context.Context, responseID int64) (*entity.Opportunity, error)
	MarkAutomated(ctx context.Context, id int64, adminID int64, state string) error
}

// PlanRepository resolves plan idents referenced by automation rules.
type PlanRepository interface {
	ByIdent(ctx context.Context, ident string) (*entity.Plan, error)
}

// OfferRepository persists generated offers with their options.
type OfferRepository interface {
	Create(ctx context.Context, offer *entity.Offer) error
}

// DocumentBuilder renders the option comparison document for an offer.
type DocumentBuilder interface {
	BuildComparisonDocument(ctx context.Context, offer *entity.Offer, plans []*entity.Plan) (string, error)
}

// AdminPool hands out the admin an automated opportunity is assigned to.
type AdminPool interface {
	Next() int64
}

// EventPublisher emits the offer-created event.
type EventPublisher interface {
	Publish(ctx context.Context, key, eventType string, payload interface{}) error
}

// Matcher matches completed questionnaire responses against configured
// automation rules and builds the resulting offer.
type Matcher struct {
	rules         RuleRepository
	answers       AnswerRepository
	opportunities OpportunityRepository
	plans         PlanRepository
	offers        OfferRepository
	documents     DocumentBuilder
	admins        AdminPool
	events        EventPublisher
	logger        *zap.Logger

	minCoverageFeatures int
}

// NewMatcher creates a new offer automation matcher
func NewMatcher(
	rules RuleRepository,
	answers AnswerRepository,
	opportunities OpportunityRepository,
	plans PlanRepository,
	offers OfferRepository,
	documents DocumentBuilder,
	admins AdminPool,
	events EventPublisher,
	minCoverageFeatures int,
	logger *zap.Logger,
) *Matcher {
	return &Matcher{
		rules:               rules,
		answers:             answers,
		opportunities:       opportunities,
		plans:               plans,
		offers:              offers,
		documents:           documents,
		admins:              admins,
		events:              events,
		minCoverageFeatures: minCoverageFeatures,
		logger:              logger,
	}
}

// TryAutomate matches the response against the active automation rules
// of its category and, on a match, generates the offer and advances the
// opportunity to offer_sent. Automation is skipped (not an error) when
// the opportunity is already assigned or past its initial state, and
// when no rule matches. When several rules match, the one first in
// configuration order wins.
func (m *Matcher) TryAutomate(ctx context.Context, response *entity.QuestionnaireResponse) error {
	opportunity, err := m.opportunities.ByResponse(ctx, response.ID)
	if err != nil {
		return fmt.Errorf("load opportunity: %w", err)
	}
	if opportunity == nil {
		m.logger.Debug("No opportunity for response, skipping automation",
			zap.Int64("response_id", response.ID))
		return nil
	}
	if opportunity.AdminID != nil || opportunity.State != entity.OpportunityStateCreated {
		m.logger.Debug("Automation not permitted for opportunity",
			zap.Int64("opportunity_id", opportunity.ID),
			zap.String("state", opportunity.State),
			zap.Bool("assigned", opportunity.AdminID != nil))
		return nil
	}

	answers, err := m.answers.ListByResponse(ctx, response.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	byQuestion := make(map[string]*entity.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionIdent] = a
	}

	candidates, err := m.rules.ActiveByCategory(ctx, response.Category)
	if err != nil {
		return fmt.Errorf("load automation rules: %w", err)
	}

	var matched []*entity.OfferAutomationRule
	for _, rule := range candidates {
		if ruleMatches(rule, byQuestion) {
			matched = append(matched, rule)
		}
	}

	if len(matched) == 0 {
		m.logger.Debug("No automation rule matched",
			zap.Int64("response_id", response.ID),
			zap.String("category", response.Category))
		return nil
	}
	if len(matched) > 1 {
		m.logger.Warn("Multiple automation rules matched, using first in configuration order",
			zap.Int64("response_id", response.ID),
			zap.Int("matches", len(matched)),
			zap.Int64("chosen_rule_id", matched[0].ID))
	}
	rule := matched[0]

	generated, plans, err := m.buildOffer(ctx, opportunity, rule)
	if err != nil {
		return err
	}

	assetPath, err := m.documents.BuildComparisonDocument(ctx, generated, plans)
	if err != nil {
		return fmt.Errorf("build comparison document: %w", err)
	}
	generated.ComparisonDocumentPath = assetPath

	if err := m.offers.Create(ctx, generated); err != nil {
		return fmt.Errorf("persist offer: %w", err)
	}

	adminID := m.admins.Next()
	if err := m.opportunities.MarkAutomated(ctx, opportunity.ID, adminID, entity.OpportunityStateOfferSent); err != nil {
		return fmt.Errorf("mark opportunity automated: %w", err)
	}
	opportunity.State = entity.OpportunityStateOfferSent
	opportunity.AdminID = &adminID
	opportunity.Automated = true

	m.logger.Info("Offer automated",
		zap.Int64("response_id", response.ID),
		zap.Int64("opportunity_id", opportunity.ID),
		zap.Int64("offer_id", generated.ID),
		zap.Int64("rule_id", rule.ID),
		zap.Int("options", len(generated.Options)))

	if err := m.events.Publish(ctx, fmt.Sprintf("offer-%d", generated.ID), notification.EventOfferCreated, notification.OfferCreatedEvent{
		OfferID:       generated.ID,
		OpportunityID: opportunity.ID,
		MandateID:     generated.MandateID,
		OptionCount:   len(generated.Options),
	}); err != nil {
		m.logger.Warn("Offer event publish failed",
			zap.Int64("offer_id", generated.ID),
			zap.Error(err))
	}

	return nil
}

// ruleMatches reports whether every expectation of the rule equals the
// response's normalized answer for that question.
func ruleMatches(rule *entity.OfferAutomationRule, answers map[string]*entity.Answer) bool {
	for questionIdent, expectation := range rule.AnswerValues {
		if !expectation.Matches(answers[questionIdent]) {
			return false
		}
	}
	return len(rule.AnswerValues) > 0
}

// buildOffer validates the rule's plan configuration and assembles the
// offer entity, one option per plan ident.
func (m *Matcher) buildOffer(ctx context.Context, opportunity *entity.Opportunity, rule *entity.OfferAutomationRule) (*entity.Offer, []*entity.Plan, error) {
	if len(rule.CoverageFeatureIdents) < m.minCoverageFeatures {
		return nil, nil, fmt.Errorf("%w: rule %d has %d, need %d",
			ErrInsufficientCoverage, rule.ID, len(rule.CoverageFeatureIdents), m.minCoverageFeatures)
	}

	generated := &entity.Offer{
		OpportunityID:             opportunity.ID,
		MandateID:                 opportunity.MandateID,
		NoteToCustomer:            rule.NoteToCustomer,
		DisplayedCoverageFeatures: rule.CoverageFeatureIdents,
	}

	seen := make(map[string]bool, len(rule.PlanIdents))
	plans := make([]*entity.Plan, 0, len(rule.PlanIdents))
	for i, ident := range rule.PlanIdents {
		if seen[ident] {
			return nil, nil, fmt.Errorf("%w: %q in rule %d", ErrDuplicatePlan, ident, rule.ID)
		}
		seen[ident] = true

		plan, err := m.plans.ByIdent(ctx, ident)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve plan %q: %w", ident, err)
		}
		if plan == nil {
			return nil, nil, fmt.Errorf("%w: %q in rule %d", ErrPlanNotFound, ident, rule.ID)
		}
		if !plan.Active {
			return nil, nil, fmt.Errorf("%w: %q in rule %d", ErrPlanInactive, ident, rule.ID)
		}
		plans = append(plans, plan)

		optionType, ok := rule.PlanOptionTypes[ident]
		if !ok {
			optionType = entity.OptionTypeAlternative
		}
		generated.Options = append(generated.Options, entity.OfferOption{
			PlanIdent:  ident,
			OptionType: optionType,
			Position:   i,
		})
	}

	return generated, plans, nil
}
