package entity

import "time"

// Mandate is the customer record that owns contracts, questionnaire
// responses and advice.
type Mandate struct {
	ID            int64      `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	LastAdvisedAt *time.Time `json:"last_advised_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Product is an insurance contract held by a mandate.
type Product struct {
	ID           int64      `json:"id"`
	MandateID    int64      `json:"mandate_id"`
	Category     string     `json:"category"`
	PlanIdent    string     `json:"plan_ident"`
	Company      string     `json:"company"`
	PremiumCents int64      `json:"premium_cents"`
	State        string     `json:"state"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Product states.
const (
	ProductStateActive   = "active"
	ProductStateCanceled = "canceled"
)
