package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk shape of the advice rule configuration.
type ruleFile struct {
	Categories map[string][]Rule `yaml:"categories"`
}

// Load reads and validates the rule tables from a YAML file. Tables are
// immutable after loading: the evaluator only ever reads them.
func Load(path string) (map[string][]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}

	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("rule file %s defines no categories", path)
	}

	for category, table := range file.Categories {
		if err := validateTable(category, table); err != nil {
			return nil, err
		}
	}

	return file.Categories, nil
}

func validateTable(category string, table []Rule) error {
	if len(table) == 0 {
		return fmt.Errorf("category %q has an empty rule table", category)
	}

	seen := make(map[string]bool, len(table))
	for i, rule := range table {
		if rule.ID == "" {
			return fmt.Errorf("category %q: rule at position %d has no id", category, i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("category %q: duplicate rule id %q", category, rule.ID)
		}
		seen[rule.ID] = true

		for _, cond := range rule.Conditions {
			if cond.Fact == "" {
				return fmt.Errorf("category %q, rule %q: condition without a fact", category, rule.ID)
			}
			if !validOperators[cond.Op] {
				return fmt.Errorf("category %q, rule %q: unknown operator %q", category, rule.ID, cond.Op)
			}
		}

		// A catch-all anywhere but last would shadow later rules.
		if rule.CatchAll() && i != len(table)-1 {
			return fmt.Errorf("category %q: catch-all rule %q is not last", category, rule.ID)
		}
	}

	if !table[len(table)-1].CatchAll() {
		return fmt.Errorf("category %q: last rule %q is not a catch-all", category, table[len(table)-1].ID)
	}

	return nil
}
