package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/advice"
	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/internal/rules"
	"go.uber.org/zap"
)

// RecheckRepository stores deferred advice dispatch attempts.
type RecheckRepository interface {
	Due(ctx context.Context, now time.Time, limit int) ([]*entity.AdviceRecheck, error)
	Delete(ctx context.Context, id int64) error
}

// MandateReader loads mandates for deferred dispatches.
type MandateReader interface {
	GetByID(ctx context.Context, id int64) (*entity.Mandate, error)
}

// ProductReader loads products for deferred dispatches.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
}

// AdviceRecheckWorker periodically replays deferred dispatch attempts:
// it re-evaluates the rule table for the product and hands the outcome
// back to the dispatcher. Per-item failures are logged and skipped.
type AdviceRecheckWorker struct {
	rechecks   RecheckRepository
	mandates   MandateReader
	products   ProductReader
	evaluator  *rules.Evaluator
	dispatcher *advice.Dispatcher
	logger     *zap.Logger

	interval  time.Duration
	batchSize int

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewAdviceRecheckWorker creates a new recheck worker
func NewAdviceRecheckWorker(
	rechecks RecheckRepository,
	mandates MandateReader,
	products ProductReader,
	evaluator *rules.Evaluator,
	dispatcher *advice.Dispatcher,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *AdviceRecheckWorker {
	return &AdviceRecheckWorker{
		rechecks:   rechecks,
		mandates:   mandates,
		products:   products,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		batchSize:  batchSize,
	}
}

// Start starts the recheck loop
func (w *AdviceRecheckWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("advice recheck worker is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true

	w.logger.Info("AdviceRecheckWorker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))

	go w.loop()
	return nil
}

// Stop stops the recheck loop
func (w *AdviceRecheckWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return
	}
	w.isRunning = false
	if w.cancel != nil {
		w.cancel()
	}
}

// Name returns the worker name for identification
func (w *AdviceRecheckWorker) Name() string {
	return "AdviceRecheckWorker"
}

func (w *AdviceRecheckWorker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunDue(w.ctx); err != nil {
				w.logger.Error("Advice recheck run failed", zap.Error(err))
			}
		}
	}
}

// RunDue processes all rechecks whose run_at has passed and returns how
// many were dispatched. It is also invoked by the ops endpoint.
func (w *AdviceRecheckWorker) RunDue(ctx context.Context) (int, error) {
	due, err := w.rechecks.Due(ctx, time.Now(), w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load due advice rechecks: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Info("Processing due advice rechecks", zap.Int("count", len(due)))

	processed := 0
	for _, recheck := range due {
		if err := w.process(ctx, recheck); err != nil {
			w.logger.Error("Advice recheck failed",
				zap.Int64("recheck_id", recheck.ID),
				zap.Int64("mandate_id", recheck.MandateID),
				zap.Error(err))
			continue
		}
		processed++
		if err := w.rechecks.Delete(ctx, recheck.ID); err != nil {
			w.logger.Error("Failed to delete processed recheck",
				zap.Int64("recheck_id", recheck.ID),
				zap.Error(err))
		}
	}
	return processed, nil
}

func (w *AdviceRecheckWorker) process(ctx context.Context, recheck *entity.AdviceRecheck) error {
	mandate, err := w.mandates.GetByID(ctx, recheck.MandateID)
	if err != nil {
		return fmt.Errorf("load mandate: %w", err)
	}
	if mandate == nil {
		return fmt.Errorf("mandate %d not found", recheck.MandateID)
	}

	product, err := w.products.GetByID(ctx, recheck.ProductID)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return fmt.Errorf("product %d not found", recheck.ProductID)
	}

	result, ok := w.evaluator.Evaluate(product.Category, advice.ProductFacts(mandate, product))
	if !ok {
		return fmt.Errorf("no rule table for category %q", product.Category)
	}

	if _, err := w.dispatcher.Dispatch(ctx, mandate, product, result.Outcome, result.RuleID); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}
