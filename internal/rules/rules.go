package rules

// Outcome is the result of evaluating a category's rule table.
type Outcome struct {
	Classification string `yaml:"classification"`
	Text           string `yaml:"text"`
	CallToAction   string `yaml:"cta"`
}

// Operator is a comparison operator usable in rule conditions.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpContains Operator = "contains"
)

var validOperators = map[Operator]bool{
	OpEq:       true,
	OpNe:       true,
	OpLt:       true,
	OpLte:      true,
	OpGt:       true,
	OpGte:      true,
	OpContains: true,
}

// Condition is a single comparison over one fact. A condition whose
// fact is missing or cannot be coerced for the operator is false.
type Condition struct {
	Fact  string      `yaml:"fact"`
	Op    Operator    `yaml:"op"`
	Value interface{} `yaml:"value"`
}

// Rule is one predicate-outcome entry in a category's ordered table.
// A rule with no conditions always matches; the loader requires each
// category to end with such a catch-all.
type Rule struct {
	ID         string      `yaml:"id"`
	Conditions []Condition `yaml:"when"`
	Outcome    Outcome     `yaml:"outcome"`
}

// CatchAll reports whether the rule matches every fact set.
func (r *Rule) CatchAll() bool {
	return len(r.Conditions) == 0
}

// Facts is the fact set a rule table is evaluated against. Money
// amounts are integer minor units; other values are strings, numbers
// or time.Time.
type Facts map[string]interface{}
