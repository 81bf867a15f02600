package rules

import (
	"strings"
	"time"
)

// Result is the matched rule's outcome together with its identity.
type Result struct {
	RuleID  string
	Outcome Outcome
}

// Evaluator scans per-category ordered rule tables. It is a pure
// computation: no I/O, no mutation, and it never fails — malformed or
// missing facts make the referencing condition false, and the
// category's catch-all guarantees a result.
type Evaluator struct {
	tables map[string][]Rule
}

// NewEvaluator creates an evaluator over the given per-category tables.
// Tables are expected to come from the loader, which validates them.
func NewEvaluator(tables map[string][]Rule) *Evaluator {
	return &Evaluator{tables: tables}
}

// Categories returns the categories the evaluator has tables for.
func (e *Evaluator) Categories() []string {
	out := make([]string, 0, len(e.tables))
	for category := range e.tables {
		out = append(out, category)
	}
	return out
}

// Evaluate returns the outcome of the first matching rule in the
// category's ordered table. The boolean is false only when no table
// exists for the category.
func (e *Evaluator) Evaluate(category string, facts Facts) (Result, bool) {
	table, ok := e.tables[category]
	if !ok {
		return Result{}, false
	}

	for i := range table {
		rule := &table[i]
		if matches(rule, facts) {
			return Result{RuleID: rule.ID, Outcome: rule.Outcome}, true
		}
	}

	// Unreachable for loader-validated tables; the catch-all matches.
	return Result{}, false
}

func matches(rule *Rule, facts Facts) bool {
	for _, cond := range rule.Conditions {
		if !evalCondition(cond, facts) {
			return false
		}
	}
	return true
}

func evalCondition(cond Condition, facts Facts) bool {
	raw, ok := facts[cond.Fact]
	if !ok || raw == nil {
		return false
	}

	switch cond.Op {
	case OpEq, OpNe:
		eq, ok := compareEqual(raw, cond.Value)
		if !ok {
			return false
		}
		if cond.Op == OpNe {
			return !eq
		}
		return eq
	case OpLt, OpLte, OpGt, OpGte:
		cmp, ok := compareOrder(raw, cond.Value)
		if !ok {
			return false
		}
		switch cond.Op {
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case OpContains:
		s, sok := asString(raw)
		sub, vok := asString(cond.Value)
		return sok && vok && strings.Contains(s, sub)
	default:
		return false
	}
}

// compareEqual compares numerically when both sides are numeric,
// otherwise by string representation.
func compareEqual(fact, expected interface{}) (bool, bool) {
	if fn, fok := asFloat(fact); fok {
		if en, eok := asFloat(expected); eok {
			return fn == en, true
		}
		return false, true
	}
	fs, fok := asString(fact)
	es, eok := asString(expected)
	if !fok || !eok {
		return false, false
	}
	return fs == es, true
}

// compareOrder returns -1/0/1 for ordered comparisons. Only numbers and
// times are ordered; anything else fails the coercion.
func compareOrder(fact, expected interface{}) (int, bool) {
	if ft, fok := fact.(time.Time); fok {
		et, eok := asTime(expected)
		if !eok {
			return 0, false
		}
		switch {
		case ft.Before(et):
			return -1, true
		case ft.After(et):
			return 1, true
		default:
			return 0, true
		}
	}

	fn, fok := asFloat(fact)
	en, eok := asFloat(expected)
	if !fok || !eok {
		return 0, false
	}
	switch {
	case fn < en:
		return -1, true
	case fn > en:
		return 1, true
	default:
		return 0, true
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
