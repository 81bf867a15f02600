package cancellation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
)

type mockCandidateStore struct {
	deleted []int64
	err     error
}

func (m *mockCandidateStore) Delete(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockProductStore struct {
	canceled []int64
	err      error
}

func (m *mockProductStore) MarkCanceled(_ context.Context, productID int64) error {
	if m.err != nil {
		return m.err
	}
	m.canceled = append(m.canceled, productID)
	return nil
}

func TestParentKey_RoundTrip(t *testing.T) {
	key := ParentKey(42)
	assert.Equal(t, "product:42", key)

	id, err := ParseParentKey(key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseParentKey_Malformed(t *testing.T) {
	for _, key := range []string{"", "product:", "product:abc", "mandate:42"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseParentKey(key)
			assert.Error(t, err)
		})
	}
}

func TestFinalizer_TimedOutCandidateCancelsProduct(t *testing.T) {
	candidates := &mockCandidateStore{}
	products := &mockProductStore{}
	finalizer := NewFinalizer(candidates, products, zap.NewNop())

	err := finalizer.PerformAvailableCancellations(context.Background(), "product:7", map[int64]entity.CancellationCause{
		1: entity.CauseTimedOut,
		2: entity.CauseComplete,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 2}, candidates.deleted)
	assert.Equal(t, []int64{7}, products.canceled)
}

func TestFinalizer_AllCompleteLeavesProductAlone(t *testing.T) {
	candidates := &mockCandidateStore{}
	products := &mockProductStore{}
	finalizer := NewFinalizer(candidates, products, zap.NewNop())

	err := finalizer.PerformAvailableCancellations(context.Background(), "product:7", map[int64]entity.CancellationCause{
		1: entity.CauseComplete,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, candidates.deleted)
	assert.Empty(t, products.canceled)
}

func TestFinalizer_MalformedParentKey(t *testing.T) {
	finalizer := NewFinalizer(&mockCandidateStore{}, &mockProductStore{}, zap.NewNop())

	err := finalizer.PerformAvailableCancellations(context.Background(), "bogus", nil)
	assert.Error(t, err)
}

func TestFinalizer_DeleteFailurePropagates(t *testing.T) {
	candidates := &mockCandidateStore{err: errors.New("db locked")}
	products := &mockProductStore{}
	finalizer := NewFinalizer(candidates, products, zap.NewNop())

	err := finalizer.PerformAvailableCancellations(context.Background(), "product:7", map[int64]entity.CancellationCause{
		1: entity.CauseTimedOut,
	})
	require.Error(t, err)
	assert.Empty(t, products.canceled, "product untouched when candidates cannot be removed")
}
