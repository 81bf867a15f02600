package offer

import "errors"

// Validation failures abort only the current automation attempt; the
// finish transition that triggered it completes regardless.
var (
	// ErrPlanNotFound is returned when a rule references an unknown plan
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanInactive is returned when a rule references an inactive plan
	ErrPlanInactive = errors.New("plan is inactive")

	// ErrDuplicatePlan is returned when one rule lists the same plan twice
	ErrDuplicatePlan = errors.New("duplicate plan in automation rule")

	// ErrInsufficientCoverage is returned when a rule configures fewer
	// displayed coverage features than the required minimum
	ErrInsufficientCoverage = errors.New("insufficient coverage features")
)
