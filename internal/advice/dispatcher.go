package advice

import (
	"context"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/internal/notification"
	"github.com/pgoos/clark-app-sub007/internal/rules"
	"go.uber.org/zap"
)

// AdviceRepository is the advice-record persistence contract the
// dispatcher needs.
type AdviceRepository interface {
	Create(ctx context.Context, record *entity.AdviceRecord) error
	MarkValid(ctx context.Context, id int64) error
	LatestInvalidByProduct(ctx context.Context, productID int64) (*entity.AdviceRecord, error)
}

// MandateRepository updates the mandate's advising bookkeeping.
type MandateRepository interface {
	SetLastAdvisedAt(ctx context.Context, mandateID int64, at time.Time) error
}

// Notifier delivers the advice to the customer. Delivery failures are
// reported, never propagated.
type Notifier interface {
	NotifyAdvice(ctx context.Context, mandate *entity.Mandate, record *entity.AdviceRecord) error
}

// RecheckScheduler defers a dispatch attempt to a later point in time.
type RecheckScheduler interface {
	Schedule(ctx context.Context, mandateID, productID int64, runAt time.Time) error
}

// Reporter forwards delivery failures to error telemetry.
type Reporter interface {
	ReportError(ctx context.Context, err error, context map[string]string)
}

// EventPublisher emits advice domain events.
type EventPublisher interface {
	Publish(ctx context.Context, key, eventType string, payload interface{}) error
}

// Result describes what a dispatch call did.
type Result struct {
	// Record is the advice now valid for the product; nil when the
	// dispatch was deferred.
	Record *entity.AdviceRecord
	// Created is true when a new record was written, false when a
	// prior invalid record was reactivated.
	Created bool
	// Deferred is true when the mandate was already advised today and
	// a re-check was scheduled instead.
	Deferred bool
}

// Dispatcher turns rule outcomes into per-customer advice records.
// It guarantees at most one new record per mandate per calendar day;
// repeated invocations within a day defer instead of duplicating.
type Dispatcher struct {
	advice   AdviceRepository
	mandates MandateRepository
	notifier Notifier
	rechecks RecheckScheduler
	reporter Reporter
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a new advice dispatcher
func NewDispatcher(
	adviceRepo AdviceRepository,
	mandateRepo MandateRepository,
	notifier Notifier,
	rechecks RecheckScheduler,
	reporter Reporter,
	events EventPublisher,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		advice:   adviceRepo,
		mandates: mandateRepo,
		notifier: notifier,
		rechecks: rechecks,
		reporter: reporter,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the dispatcher's time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch applies a rule outcome to a mandate's product.
//
// If the mandate was already advised on the current calendar day, the
// attempt is deferred by exactly one day via the recheck scheduler.
// Otherwise a prior invalid record with identical content is
// reactivated, or a new record is created (revalidating the prior one
// to keep the audit trail). Either way last_advised_at moves to now and
// the customer is notified best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, mandate *entity.Mandate, product *entity.Product, outcome rules.Outcome, ruleID string) (*Result, error) {
	now := d.now()

	if mandate.LastAdvisedAt != nil && sameCalendarDay(*mandate.LastAdvisedAt, now) {
		runAt := now.Add(24 * time.Hour)
		if err := d.rechecks.Schedule(ctx, mandate.ID, product.ID, runAt); err != nil {
			return nil, fmt.Errorf("schedule advice recheck: %w", err)
		}
		d.logger.Info("Mandate already advised today, deferring dispatch",
			zap.Int64("mandate_id", mandate.ID),
			zap.Int64("product_id", product.ID),
			zap.Time("run_at", runAt))
		return &Result{Deferred: true}, nil
	}

	prior, err := d.advice.LatestInvalidByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("look up prior advice: %w", err)
	}

	result := &Result{}

	if prior != nil && prior.Content == outcome.Text {
		if err := d.advice.MarkValid(ctx, prior.ID); err != nil {
			return nil, fmt.Errorf("reactivate advice %d: %w", prior.ID, err)
		}
		prior.Valid = true
		result.Record = prior
		d.logger.Info("Reactivated prior advice",
			zap.Int64("mandate_id", mandate.ID),
			zap.Int64("advice_id", prior.ID))
	} else {
		record := &entity.AdviceRecord{
			MandateID:    mandate.ID,
			ProductID:    product.ID,
			RuleID:       ruleID,
			Content:      outcome.Text,
			CallToAction: outcome.CallToAction,
			Valid:        true,
			CreatedAt:    now,
		}
		if err := d.advice.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("create advice record: %w", err)
		}

		// The superseded record stays in the trail as valid history
		// rather than being deleted.
		if prior != nil {
			if err := d.advice.MarkValid(ctx, prior.ID); err != nil {
				return nil, fmt.Errorf("revalidate superseded advice %d: %w", prior.ID, err)
			}
		}

		result.Record = record
		result.Created = true
		d.logger.Info("Created advice record",
			zap.Int64("mandate_id", mandate.ID),
			zap.Int64("product_id", product.ID),
			zap.String("rule_id", ruleID))

		if err := d.events.Publish(ctx, fmt.Sprintf("advice-%d", record.ID), notification.EventAdviceCreated, notification.AdviceCreatedEvent{
			AdviceID:  record.ID,
			MandateID: mandate.ID,
			ProductID: product.ID,
			RuleID:    ruleID,
		}); err != nil {
			d.logger.Warn("Advice event publish failed",
				zap.Int64("advice_id", record.ID),
				zap.Error(err))
		}
	}

	if err := d.mandates.SetLastAdvisedAt(ctx, mandate.ID, now); err != nil {
		return nil, fmt.Errorf("update last_advised_at: %w", err)
	}
	mandate.LastAdvisedAt = &now

	if err := d.notifier.NotifyAdvice(ctx, mandate, result.Record); err != nil {
		d.logger.Warn("Advice delivery failed",
			zap.Int64("mandate_id", mandate.ID),
			zap.Int64("advice_id", result.Record.ID),
			zap.Error(err))
		d.reporter.ReportError(ctx, err, map[string]string{
			"component":  "advice_dispatcher",
			"mandate_id": fmt.Sprintf("%d", mandate.ID),
		})
	}

	return result, nil
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
