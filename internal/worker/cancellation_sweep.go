package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// CandidateRepository fetches cancellation candidates past their timeout.
// Results must be ordered (oldest first).
type CandidateRepository interface {
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.CancellationCandidate, error)
}

// Finalizer performs the actual cancellation for one parent workflow.
// It must be idempotent: finalizing an already-resolved parent is a
// no-op. It may fail; the sweep isolates failures per parent.
type Finalizer interface {
	PerformAvailableCancellations(ctx context.Context, parentKey string, causes map[int64]entity.CancellationCause) error
}

// ErrorReporter forwards per-group failures to error telemetry.
type ErrorReporter interface {
	ReportError(ctx context.Context, err error, context map[string]string)
}

// CancellationSweep finds timed-out cancellation candidates, groups
// them by parent workflow and asks the finalizer to act on each group.
// One group's failure never aborts the run.
type CancellationSweep struct {
	repo      CandidateRepository
	finalizer Finalizer
	reporter  ErrorReporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewCancellationSweep creates a new sweep
func NewCancellationSweep(
	repo CandidateRepository,
	finalizer Finalizer,
	reporter ErrorReporter,
	logger *zap.Logger,
) *CancellationSweep {
	return &CancellationSweep{
		repo:      repo,
		finalizer: finalizer,
		reporter:  reporter,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the sweep's time source.
func (s *CancellationSweep) WithClock(now func() time.Time) *CancellationSweep {
	s.now = now
	return s
}

// Execute runs one sweep. Candidates older than timeout are fetched in
// batches of batchSize and processed until the repository runs dry or
// executionLimit candidates (0 = unlimited) have been handled. A set of
// candidate ids already attempted in this run guards against a
// repository that keeps surfacing a failing item: the run always
// terminates. Returns the number of candidates processed.
func (s *CancellationSweep) Execute(ctx context.Context, timeout time.Duration, batchSize, executionLimit int) (int, error) {
	start := s.now()
	cutoff := start.Add(-timeout)
	seen := make(map[int64]struct{})
	processed := 0

	s.logger.Info("Cancellation sweep started",
		zap.Time("cutoff", cutoff),
		zap.Int("batch_size", batchSize),
		zap.Int("execution_limit", executionLimit))

	for {
		if executionLimit > 0 && processed >= executionLimit {
			break
		}

		batch, err := s.repo.OlderThan(ctx, cutoff, batchSize)
		if err != nil {
			s.reporter.ReportError(ctx, err, map[string]string{"component": "cancellation_sweep"})
			return processed, fmt.Errorf("fetch cancellation candidates: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		// Drop candidates already attempted in this run. If the whole
		// batch was seen before, the repository is not advancing and
		// the run must stop.
		fresh := batch[:0:0]
		for _, c := range batch {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			fresh = append(fresh, c)
		}
		if len(fresh) == 0 {
			s.logger.Warn("Repository returned only already-seen candidates, stopping run",
				zap.Int("batch", len(batch)))
			break
		}

		if executionLimit > 0 && processed+len(fresh) > executionLimit {
			fresh = fresh[:executionLimit-processed]
		}

		groups := groupByParent(fresh)
		for parentKey, causes := range groups {
			s.finalizeGroup(ctx, parentKey, causes)
			processed += len(causes)
		}
	}

	s.logger.Info("Cancellation sweep finished",
		zap.Int("processed", processed),
		zap.Duration("elapsed", s.now().Sub(start)))
	return processed, nil
}

// finalizeGroup runs the finalizer for one parent in isolation; errors
// and panics are logged and reported, never propagated.
func (s *CancellationSweep) finalizeGroup(ctx context.Context, parentKey string, causes map[int64]entity.CancellationCause) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("finalizer panic: %v", p)
			s.logger.Error("Cancellation finalizer panicked",
				zap.String("parent_key", parentKey),
				zap.Any("panic", p))
			s.reporter.ReportError(ctx, err, map[string]string{
				"component":  "cancellation_sweep",
				"parent_key": parentKey,
			})
		}
	}()

	if err := s.finalizer.PerformAvailableCancellations(ctx, parentKey, causes); err != nil {
		s.logger.Error("Cancellation finalization failed",
			zap.String("parent_key", parentKey),
			zap.Int("candidates", len(causes)),
			zap.Error(err))
		s.reporter.ReportError(ctx, err, map[string]string{
			"component":  "cancellation_sweep",
			"parent_key": parentKey,
		})
	}
}

// groupByParent maps parent_key to candidate causes: complete when an
// outcome already exists, timed_out otherwise.
func groupByParent(candidates []*entity.CancellationCandidate) map[string]map[int64]entity.CancellationCause {
	groups := make(map[string]map[int64]entity.CancellationCause)
	for _, c := range candidates {
		causes, ok := groups[c.ParentKey]
		if !ok {
			causes = make(map[int64]entity.CancellationCause)
			groups[c.ParentKey] = causes
		}
		if c.Resolved() {
			causes[c.ID] = entity.CauseComplete
		} else {
			causes[c.ID] = entity.CauseTimedOut
		}
	}
	return groups
}

// SweepWorker runs the cancellation sweep on a fixed interval.
type SweepWorker struct {
	sweep  *CancellationSweep
	logger *zap.Logger

	interval       time.Duration
	timeout        time.Duration
	batchSize      int
	executionLimit int

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSweepWorker creates the periodic wrapper around the sweep
func NewSweepWorker(sweep *CancellationSweep, interval, timeout time.Duration, batchSize, executionLimit int, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{
		sweep:          sweep,
		logger:         logger,
		interval:       interval,
		timeout:        timeout,
		batchSize:      batchSize,
		executionLimit: executionLimit,
	}
}

// Start starts the sweep loop
func (w *SweepWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("cancellation sweep worker is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true

	w.logger.Info("SweepWorker started",
		zap.Duration("interval", w.interval),
		zap.Duration("timeout", w.timeout),
		zap.Int("batch_size", w.batchSize))

	go w.loop()
	return nil
}

// Stop stops the sweep loop
func (w *SweepWorker) Stop() {
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
func (w *SweepWorker) Name() string {
	return "CancellationSweepWorker"
}

func (w *SweepWorker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	w.run()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.run()
		}
	}
}

func (w *SweepWorker) run() {
	if _, err := w.sweep.Execute(w.ctx, w.timeout, w.batchSize, w.executionLimit); err != nil {
		w.logger.Error("Cancellation sweep run failed", zap.Error(err))
	}
}
