package entity

import "time"

// Opportunity is the internal workflow entity a generated offer is
// attached to. Automation is only permitted while it is unassigned and
// still in its initial state.
type Opportunity struct {
	ID         int64     `json:"id"`
	MandateID  int64     `json:"mandate_id"`
	ResponseID int64     `json:"response_id"`
	Category   string    `json:"category"`
	State      string    `json:"state"`
	AdminID    *int64    `json:"admin_id,omitempty"`
	Automated  bool      `json:"automated"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Opportunity states.
const (
	OpportunityStateCreated   = "created"
	OpportunityStateOfferSent = "offer_sent"
	OpportunityStateCompleted = "completed"
	OpportunityStateLost      = "lost"
)

// Offer is a generated proposal containing one or more plan options.
type Offer struct {
	ID                        int64         `json:"id"`
	OpportunityID             int64         `json:"opportunity_id"`
	MandateID                 int64         `json:"mandate_id"`
	NoteToCustomer            string        `json:"note_to_customer"`
	DisplayedCoverageFeatures []string      `json:"displayed_coverage_features"`
	ComparisonDocumentPath    string        `json:"comparison_document_path"`
	Options                   []OfferOption `json:"options"`
	CreatedAt                 time.Time     `json:"created_at"`
}

// OfferOption is one selectable plan inside an offer.
type OfferOption struct {
	ID         int64  `json:"id"`
	OfferID    int64  `json:"offer_id"`
	PlanIdent  string `json:"plan_ident"`
	OptionType string `json:"option_type"`
	Position   int    `json:"position"`
}

// Offer option types.
const (
	OptionTypeTopCover    = "top_cover"
	OptionTypeTopPrice    = "top_price"
	OptionTypeAlternative = "alternative"
)

// Plan is a sellable insurance plan referenced by offers.
type Plan struct {
	ID           int64     `json:"id"`
	Ident        string    `json:"ident"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Company      string    `json:"company"`
	PremiumCents int64     `json:"premium_cents"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// OfferAutomationRule maps a set of expected questionnaire answers to
// the offer that should be generated when a response matches. Rules are
// externally configured and scanned in Position order.
type OfferAutomationRule struct {
	ID                    int64                        `json:"id"`
	Category              string                       `json:"category"`
	Position              int                          `json:"position"`
	Active                bool                         `json:"active"`
	AnswerValues          map[string]AnswerExpectation `json:"answer_values"`
	PlanIdents            []string                     `json:"plan_idents"`
	PlanOptionTypes       map[string]string            `json:"plan_option_types"`
	CoverageFeatureIdents []string                     `json:"coverage_feature_idents"`
	NoteToCustomer        string                       `json:"note_to_customer"`
	CreatedAt             time.Time                    `json:"created_at"`
}

// AnswerExpectation is the expected normalized answer for one question.
// Scalar expectations set Value; multi-select expectations set Values,
// which are compared as an order-preserving list.
type AnswerExpectation struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Matches reports whether the given answer equals the expectation.
func (e AnswerExpectation) Matches(answer *Answer) bool {
	if answer == nil {
		return false
	}
	if len(e.Values) > 0 {
		got := answer.NormalizedValues()
		if len(got) != len(e.Values) {
			return false
		}
		for i, v := range e.Values {
			if got[i] != v {
				return false
			}
		}
		return true
	}
	return answer.Normalized() == e.Value
}
