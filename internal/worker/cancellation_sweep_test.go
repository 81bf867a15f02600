package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
)

// scriptedCandidateRepo returns its batches in sequence, then empties.
type scriptedCandidateRepo struct {
	batches [][]*entity.CancellationCandidate
	calls   int
	err     error
}

func (r *scriptedCandidateRepo) OlderThan(_ context.Context, _ time.Time, _ int) ([]*entity.CancellationCandidate, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.calls++
	if len(r.batches) == 0 {
		return nil, nil
	}
	batch := r.batches[0]
	r.batches = r.batches[1:]
	return batch, nil
}

// stuckCandidateRepo keeps returning the same candidate forever,
// mimicking a finalizer that cannot remove it.
type stuckCandidateRepo struct {
	candidate *entity.CancellationCandidate
	calls     int
}

func (r *stuckCandidateRepo) OlderThan(_ context.Context, _ time.Time, _ int) ([]*entity.CancellationCandidate, error) {
	r.calls++
	return []*entity.CancellationCandidate{r.candidate}, nil
}

type recordingFinalizer struct {
	groups map[string]map[int64]entity.CancellationCause
	order  []string
	errFor map[string]error
	panics map[string]bool
}

func newRecordingFinalizer() *recordingFinalizer {
	return &recordingFinalizer{
		groups: make(map[string]map[int64]entity.CancellationCause),
		errFor: make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *recordingFinalizer) PerformAvailableCancellations(_ context.Context, parentKey string, causes map[int64]entity.CancellationCause) error {
	if f.panics[parentKey] {
		panic("finalizer blew up")
	}
	f.groups[parentKey] = causes
	f.order = append(f.order, parentKey)
	return f.errFor[parentKey]
}

type recordingReporter struct {
	reported []error
}

func (r *recordingReporter) ReportError(_ context.Context, err error, _ map[string]string) {
	r.reported = append(r.reported, err)
}

func candidate(id int64, parentKey string, resolvedKind string) *entity.CancellationCandidate {
	return &entity.CancellationCandidate{
		ID:           id,
		ParentKey:    parentKey,
		TimeoutAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ResolvedKind: resolvedKind,
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestCancellationSweep_GroupsByParentKey(t *testing.T) {
	repo := &scriptedCandidateRepo{batches: [][]*entity.CancellationCandidate{
		{
			candidate(1, "product:7", ""),
			candidate(2, "product:7", "accepted"),
			candidate(3, "product:9", ""),
		},
	}}
	finalizer := newRecordingFinalizer()
	reporter := &recordingReporter{}
	sweep := NewCancellationSweep(repo, finalizer, reporter, zap.NewNop()).
		WithClock(fixedClock(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))

	processed, err := sweep.Execute(context.Background(), 14*24*time.Hour, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, processed)
	require.Len(t, finalizer.groups, 2)
	assert.Equal(t, map[int64]entity.CancellationCause{
		1: entity.CauseTimedOut,
		2: entity.CauseComplete,
	}, finalizer.groups["product:7"])
	assert.Equal(t, map[int64]entity.CancellationCause{
		3: entity.CauseTimedOut,
	}, finalizer.groups["product:9"])
	assert.Empty(t, reporter.reported)
}

func TestCancellationSweep_EmptyRepositoryDoesNothing(t *testing.T) {
	repo := &scriptedCandidateRepo{}
	finalizer := newRecordingFinalizer()
	sweep := NewCancellationSweep(repo, finalizer, &recordingReporter{}, zap.NewNop())

	processed, err := sweep.Execute(context.Background(), time.Hour, 50, 0)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, finalizer.order)
}

func TestCancellationSweep_StuckCandidateTerminates(t *testing.T) {
	repo := &stuckCandidateRepo{candidate: candidate(1, "product:7", "")}
	finalizer := newRecordingFinalizer()
	finalizer.errFor["product:7"] = errors.New("still cannot finalize")
	reporter := &recordingReporter{}
	sweep := NewCancellationSweep(repo, finalizer, reporter, zap.NewNop())

	processed, err := sweep.Execute(context.Background(), time.Hour, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"product:7"}, finalizer.order, "finalizer called once despite repeating repo")
	assert.Equal(t, 2, repo.calls, "second fetch detects the repeat and stops")
	assert.Len(t, reporter.reported, 1)
}

func TestCancellationSweep_ExecutionLimitCapsRun(t *testing.T) {
	repo := &scriptedCandidateRepo{batches: [][]*entity.CancellationCandidate{
		{candidate(1, "product:7", "")},
		{candidate(2, "product:9", "")},
	}}
	finalizer := newRecordingFinalizer()
	sweep := NewCancellationSweep(repo, finalizer, &recordingReporter{}, zap.NewNop())

	processed, err := sweep.Execute(context.Background(), time.Hour, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"product:7"}, finalizer.order)
}

func TestCancellationSweep_GroupErrorDoesNotAbortRun(t *testing.T) {
	repo := &scriptedCandidateRepo{batches: [][]*entity.CancellationCandidate{
		{
			candidate(1, "product:7", ""),
			candidate(2, "product:9", ""),
		},
	}}
	finalizer := newRecordingFinalizer()
	finalizer.errFor["product:7"] = errors.New("insurer endpoint down")
	finalizer.errFor["product:9"] = errors.New("insurer endpoint down")
	reporter := &recordingReporter{}
	sweep := NewCancellationSweep(repo, finalizer, reporter, zap.NewNop())

	processed, err := sweep.Execute(context.Background(), time.Hour, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, processed)
	assert.Len(t, finalizer.order, 2)
	assert.Len(t, reporter.reported, 2)
}

func TestCancellationSweep_GroupPanicIsIsolated(t *testing.T) {
	repo := &scriptedCandidateRepo{batches: [][]*entity.CancellationCandidate{
		{
			candidate(1, "product:7", ""),
			candidate(2, "product:9", ""),
		},
	}}
	finalizer := newRecordingFinalizer()
	finalizer.panics["product:7"] = true
	reporter := &recordingReporter{}
	sweep := NewCancellationSweep(repo, finalizer, reporter, zap.NewNop())

	processed, err := sweep.Execute(context.Background(), time.Hour, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, processed)
	assert.Contains(t, finalizer.groups, "product:9", "healthy group still finalized")
	require.Len(t, reporter.reported, 1)
	assert.Contains(t, reporter.reported[0].Error(), "finalizer panic")
}

func TestCancellationSweep_FetchErrorPropagates(t *testing.T) {
	repo := &scriptedCandidateRepo{err: errors.New("db unavailable")}
	reporter := &recordingReporter{}
	sweep := NewCancellationSweep(repo, newRecordingFinalizer(), reporter, zap.NewNop())

	_, err := sweep.Execute(context.Background(), time.Hour, 50, 0)
	require.Error(t, err)
	assert.Len(t, reporter.reported, 1)
}

func TestGroupByParent_CauseClassification(t *testing.T) {
	groups := groupByParent([]*entity.CancellationCandidate{
		candidate(1, "product:7", "declined"),
		candidate(2, "product:7", ""),
	})

	require.Len(t, groups, 1)
	assert.Equal(t, entity.CauseComplete, groups["product:7"][1])
	assert.Equal(t, entity.CauseTimedOut, groups["product:7"][2])
}
