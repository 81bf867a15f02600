package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../migrations"))
	// A second run must skip everything already applied.
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return db
}

func createMandate(t *testing.T, db *database.DB) *entity.Mandate {
	t.Helper()
	mandate := &entity.Mandate{FirstName: "Ada", LastName: "Example", Email: "ada@example.com"}
	require.NoError(t, NewMandateRepository(db.DB, zap.NewNop()).Create(context.Background(), mandate))
	return mandate
}

func createProduct(t *testing.T, db *database.DB, mandateID int64) *entity.Product {
	t.Helper()
	product := &entity.Product{
		MandateID:    mandateID,
		Category:     "liability",
		PlanIdent:    "liability-basic",
		Company:      "Example Insurance",
		PremiumCents: 4900,
		State:        entity.ProductStateActive,
	}
	require.NoError(t, NewProductRepository(db.DB, zap.NewNop()).Create(context.Background(), product))
	return product
}

func TestMandateRepository_SetLastAdvisedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMandateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	mandate := createMandate(t, db)
	require.Nil(t, mandate.LastAdvisedAt)

	advisedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastAdvisedAt(ctx, mandate.ID, advisedAt))

	loaded, err := repo.GetByID(ctx, mandate.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NotNil(t, loaded.LastAdvisedAt)
	assert.True(t, loaded.LastAdvisedAt.Equal(advisedAt))
}

func TestMandateRepository_GetByIDMissing(t *testing.T) {
	db := setupTestDB(t)

	loaded, err := NewMandateRepository(db.DB, zap.NewNop()).GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestProductRepository_MarkCanceledIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	mandate := createMandate(t, db)
	product := createProduct(t, db, mandate.ID)

	require.NoError(t, repo.MarkCanceled(ctx, product.ID))
	require.NoError(t, repo.MarkCanceled(ctx, product.ID))

	loaded, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProductStateCanceled, loaded.State)
}

func TestAdviceRepository_LatestInvalidByProduct(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdviceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	mandate := createMandate(t, db)
	product := createProduct(t, db, mandate.ID)

	none, err := repo.LatestInvalidByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	older := &entity.AdviceRecord{
		MandateID: mandate.ID, ProductID: product.ID, RuleID: "r1",
		Content: "Older advice.", Valid: true,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := &entity.AdviceRecord{
		MandateID: mandate.ID, ProductID: product.ID, RuleID: "r2",
		Content: "Newer advice.", Valid: true,
		CreatedAt: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.MarkInvalid(ctx, older.ID))
	require.NoError(t, repo.MarkInvalid(ctx, newer.ID))

	latest, err := repo.LatestInvalidByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	require.NoError(t, repo.MarkValid(ctx, newer.ID))
	latest, err = repo.LatestInvalidByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, older.ID, latest.ID)
}

func TestAnswerRepository_UpsertKeepsOneRowPerQuestion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mandate := createMandate(t, db)
	response := &entity.QuestionnaireResponse{MandateID: mandate.ID, QuestionnaireID: 1, Category: "household", State: "created"}
	require.NoError(t, NewResponseRepository(db.DB, zap.NewNop()).Create(ctx, response))

	repo := NewAnswerRepository(db.DB, zap.NewNop())
	require.NoError(t, repo.Upsert(ctx, &entity.Answer{ResponseID: response.ID, QuestionIdent: "household_size", Values: []string{"3"}}))
	require.NoError(t, repo.Upsert(ctx, &entity.Answer{ResponseID: response.ID, QuestionIdent: "household_size", Values: []string{"4"}}))
	require.NoError(t, repo.Upsert(ctx, &entity.Answer{ResponseID: response.ID, QuestionIdent: "coverages", Values: []string{"glass", "bike"}}))

	answers, err := repo.ListByResponse(ctx, response.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "household_size", answers[0].QuestionIdent)
	assert.Equal(t, []string{"4"}, answers[0].Values)
	assert.Equal(t, []string{"glass", "bike"}, answers[1].Values)
}

func TestResponseRepository_StateAndFinishedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	mandate := createMandate(t, db)
	response := &entity.QuestionnaireResponse{MandateID: mandate.ID, QuestionnaireID: 1, Category: "household", State: "created"}
	require.NoError(t, repo.Create(ctx, response))

	require.NoError(t, repo.UpdateState(ctx, response.ID, "completed"))
	finishedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetFinishedAt(ctx, response.ID, finishedAt))

	loaded, err := repo.GetByID(ctx, response.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", loaded.State)
	require.NotNil(t, loaded.FinishedAt)
	assert.True(t, loaded.FinishedAt.Equal(finishedAt))
}

func TestRecheckRepository_ScheduleReplacesPerProduct(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecheckRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	mandate := createMandate(t, db)
	product := createProduct(t, db, mandate.ID)

	first := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Schedule(ctx, mandate.ID, product.ID, first))
	require.NoError(t, repo.Schedule(ctx, mandate.ID, product.ID, second))

	due, err := repo.Due(ctx, second.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, due[0].RunAt.Equal(second))

	notYet, err := repo.Due(ctx, first, 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	require.NoError(t, repo.Delete(ctx, due[0].ID))
	due, err = repo.Due(ctx, second.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestCandidateRepository_OlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandidateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	old1 := &entity.CancellationCandidate{ParentKey: "product:7", TimeoutAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	old2 := &entity.CancellationCandidate{ParentKey: "product:9", TimeoutAt: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), ResolvedKind: "accepted"}
	fresh := &entity.CancellationCandidate{ParentKey: "product:9", TimeoutAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	for _, c := range []*entity.CancellationCandidate{old2, old1, fresh} {
		require.NoError(t, repo.Create(ctx, c))
	}

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	timedOut, err := repo.OlderThan(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, timedOut, 2)
	assert.Equal(t, old1.ID, timedOut[0].ID, "oldest first")
	assert.Equal(t, old2.ID, timedOut[1].ID)
	assert.False(t, timedOut[0].Resolved())
	assert.True(t, timedOut[1].Resolved())

	limited, err := repo.OlderThan(ctx, cutoff, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, old1.ID, limited[0].ID)

	require.NoError(t, repo.Delete(ctx, old1.ID))
	require.NoError(t, repo.Delete(ctx, old1.ID), "deleting twice is a no-op")
}

func TestAutomationRuleRepository_ActiveByCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAutomationRuleRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	second := &entity.OfferAutomationRule{
		Category: "household", Position: 1, Active: true,
		AnswerValues:          map[string]entity.AnswerExpectation{"household_size": {Value: "4"}},
		PlanIdents:            []string{"household-comfort"},
		PlanOptionTypes:       map[string]string{"household-comfort": entity.OptionTypeTopCover},
		CoverageFeatureIdents: []string{"glass", "bike"},
	}
	first := &entity.OfferAutomationRule{
		Category: "household", Position: 0, Active: true,
		AnswerValues:          map[string]entity.AnswerExpectation{"coverages": {Values: []string{"glass", "bike"}}},
		PlanIdents:            []string{"household-basic"},
		CoverageFeatureIdents: []string{"glass", "bike"},
	}
	inactive := &entity.OfferAutomationRule{
		Category: "household", Position: 2, Active: false,
		AnswerValues:          map[string]entity.AnswerExpectation{"household_size": {Value: "1"}},
		PlanIdents:            []string{"household-basic"},
		CoverageFeatureIdents: []string{"glass"},
	}
	otherCategory := &entity.OfferAutomationRule{
		Category: "liability", Position: 0, Active: true,
		AnswerValues:          map[string]entity.AnswerExpectation{"household_size": {Value: "1"}},
		PlanIdents:            []string{"liability-basic"},
		CoverageFeatureIdents: []string{"glass"},
	}
	for _, rule := range []*entity.OfferAutomationRule{second, first, inactive, otherCategory} {
		require.NoError(t, repo.Create(ctx, rule))
	}

	rules, err := repo.ActiveByCategory(ctx, "household")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, first.ID, rules[0].ID, "position order, not insertion order")
	assert.Equal(t, second.ID, rules[1].ID)
	assert.Equal(t, []string{"glass", "bike"}, rules[0].AnswerValues["coverages"].Values)
	assert.Equal(t, "4", rules[1].AnswerValues["household_size"].Value)
}

func TestOfferRepository_CreateWritesOptions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mandate := createMandate(t, db)
	response := &entity.QuestionnaireResponse{MandateID: mandate.ID, QuestionnaireID: 1, Category: "household", State: "completed"}
	require.NoError(t, NewResponseRepository(db.DB, zap.NewNop()).Create(ctx, response))

	opportunities := NewOpportunityRepository(db.DB, zap.NewNop())
	opportunity := &entity.Opportunity{MandateID: mandate.ID, ResponseID: response.ID, Category: "household", State: entity.OpportunityStateCreated}
	require.NoError(t, opportunities.Create(ctx, opportunity))

	offer := &entity.Offer{
		OpportunityID:             opportunity.ID,
		MandateID:                 mandate.ID,
		NoteToCustomer:            "We picked these for you.",
		DisplayedCoverageFeatures: []string{"glass", "bike"},
		ComparisonDocumentPath:    "/tmp/comparison.xlsx",
		Options: []entity.OfferOption{
			{PlanIdent: "household-basic", OptionType: entity.OptionTypeTopPrice, Position: 0},
			{PlanIdent: "household-comfort", OptionType: entity.OptionTypeTopCover, Position: 1},
		},
	}
	require.NoError(t, NewOfferRepository(db, zap.NewNop()).Create(ctx, offer))
	assert.NotZero(t, offer.ID)
	for _, option := range offer.Options {
		assert.Equal(t, offer.ID, option.OfferID)
		assert.NotZero(t, option.ID)
	}

	require.NoError(t, opportunities.MarkAutomated(ctx, opportunity.ID, 77, entity.OpportunityStateOfferSent))
	loaded, err := opportunities.ByResponse(ctx, response.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entity.OpportunityStateOfferSent, loaded.State)
	require.NotNil(t, loaded.AdminID)
	assert.Equal(t, int64(77), *loaded.AdminID)
	assert.True(t, loaded.Automated)
}

func TestPlanRepository_ByIdent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPlanRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	plan := &entity.Plan{Ident: "household-basic", Name: "Household Basic", Category: "household", Company: "Example Insurance", PremiumCents: 5900, Active: true}
	require.NoError(t, repo.Create(ctx, plan))

	loaded, err := repo.ByIdent(ctx, "household-basic")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, plan.ID, loaded.ID)
	assert.True(t, loaded.Active)

	missing, err := repo.ByIdent(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
