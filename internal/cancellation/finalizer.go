package cancellation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// CandidateStore removes candidates once they are acted upon. Deleting
// an already-removed candidate must be a no-op.
type CandidateStore interface {
	Delete(ctx context.Context, id int64) error
}

// ProductStore transitions the parent contract. MarkCanceled must be
// idempotent for already-canceled products.
type ProductStore interface {
	MarkCanceled(ctx context.Context, productID int64) error
}

// ParentKey builds the grouping key for candidates of one product.
func ParentKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// ParseParentKey extracts the product id from a grouping key.
func ParseParentKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, "product:")
	if !ok {
		return 0, fmt.Errorf("malformed parent key %q", key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed parent key %q: %w", key, err)
	}
	return id, nil
}

// Finalizer finalizes the cancellation of one parent contract's
// pending switch items. It is idempotent: candidates already removed
// and products already canceled are left alone.
type Finalizer struct {
	candidates CandidateStore
	products   ProductStore
	logger     *zap.Logger
}

// NewFinalizer creates a new finalizer
func NewFinalizer(candidates CandidateStore, products ProductStore, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		candidates: candidates,
		products:   products,
		logger:     logger,
	}
}

// PerformAvailableCancellations removes the group's candidates and, when
// any of them ran into the timeout without an outcome, cancels the
// parent contract.
func (f *Finalizer) PerformAvailableCancellations(ctx context.Context, parentKey string, causes map[int64]entity.CancellationCause) error {
	productID, err := ParseParentKey(parentKey)
	if err != nil {
		return err
	}

	timedOut := false
	for candidateID, cause := range causes {
		if err := f.candidates.Delete(ctx, candidateID); err != nil {
			return fmt.Errorf("remove candidate %d: %w", candidateID, err)
		}
		if cause == entity.CauseTimedOut {
			timedOut = true
		}
	}

	if timedOut {
		if err := f.products.MarkCanceled(ctx, productID); err != nil {
			return fmt.Errorf("cancel product %d: %w", productID, err)
		}
	}

	f.logger.Info("Finalized cancellation group",
		zap.String("parent_key", parentKey),
		zap.Int("candidates", len(causes)),
		zap.Bool("timed_out", timedOut))
	return nil
}
