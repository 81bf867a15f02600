package entity

import "time"

// AdviceRecord is a single piece of generated advice for a product.
// A superseded record is kept with valid=false instead of being deleted;
// the dispatcher may reactivate it when the same advice applies again.
type AdviceRecord struct {
	ID           int64     `json:"id"`
	MandateID    int64     `json:"mandate_id"`
	ProductID    int64     `json:"product_id"`
	RuleID       string    `json:"rule_id"`
	Content      string    `json:"content"`
	CallToAction string    `json:"call_to_action"`
	Valid        bool      `json:"valid"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdviceRecheck is a deferred dispatch attempt for a product whose
// mandate was already advised on the day of the original attempt.
type AdviceRecheck struct {
	ID        int64     `json:"id"`
	MandateID int64     `json:"mandate_id"`
	ProductID int64     `json:"product_id"`
	RunAt     time.Time `json:"run_at"`
	CreatedAt time.Time `json:"created_at"`
}
