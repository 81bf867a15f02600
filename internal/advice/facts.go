package advice

import (
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/internal/rules"
)

// ProductFacts builds the fact set rule tables are evaluated against
// for a contract. Facts that cannot be derived are simply omitted;
// the evaluator treats missing facts as non-matching.
func ProductFacts(mandate *entity.Mandate, product *entity.Product) rules.Facts {
	facts := rules.Facts{
		"category":      product.Category,
		"plan_ident":    product.PlanIdent,
		"company":       product.Company,
		"premium_cents": product.PremiumCents,
		"state":         product.State,
	}

	if product.StartedAt != nil {
		facts["started_at"] = *product.StartedAt
		facts["contract_age_months"] = int64(time.Since(*product.StartedAt).Hours() / (24 * 30))
	}

	return facts
}
