package entity

import "time"

// CancellationCandidate is a pending insurance-switch workflow item
// awaiting either an outcome from the previous insurer or a timeout.
// Candidates belonging to one parent workflow share a ParentKey.
type CancellationCandidate struct {
	ID           int64     `json:"id"`
	ParentKey    string    `json:"parent_key"`
	TimeoutAt    time.Time `json:"timeout_at"`
	ResolvedKind string    `json:"resolved_kind"`
	CreatedAt    time.Time `json:"created_at"`
}

// Resolved reports whether an outcome already exists for the candidate.
func (c *CancellationCandidate) Resolved() bool {
	return c.ResolvedKind != ""
}

// CancellationCause describes why a candidate is being finalized.
type CancellationCause string

const (
	// CauseComplete means an outcome already exists for the candidate.
	CauseComplete CancellationCause = "complete"
	// CauseTimedOut means the candidate exceeded its waiting period.
	CauseTimedOut CancellationCause = "timed_out"
)
