package entity

import (
	"strings"
	"time"
)

// QuestionnaireResponse is a customer's in-progress questionnaire.
// Its lifecycle is governed by the response state machine; the State
// field holds the persisted value of the machine's current state.
type QuestionnaireResponse struct {
	ID              int64      `json:"id"`
	MandateID       int64      `json:"mandate_id"`
	QuestionnaireID int64      `json:"questionnaire_id"`
	Category        string     `json:"category"`
	State           string     `json:"state"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Answer is a single answer within a response. At most one answer
// exists per (response, question); re-answering overwrites in place.
// Values holds the selected option values in selection order; scalar
// answers have exactly one element.
type Answer struct {
	ID            int64     `json:"id"`
	ResponseID    int64     `json:"response_id"`
	QuestionIdent string    `json:"question_ident"`
	Values        []string  `json:"values"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalized returns the canonical comparable form of the answer:
// each value trimmed, multi-select values joined with ", " in the
// original selection order.
func (a *Answer) Normalized() string {
	return strings.Join(a.NormalizedValues(), ", ")
}

// NormalizedValues returns the trimmed values preserving selection order.
func (a *Answer) NormalizedValues() []string {
	out := make([]string, len(a.Values))
	for i, v := range a.Values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
