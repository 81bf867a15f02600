package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability:
    - id: cheap
      when:
        - fact: premium_cents
          op: lt
          value: 5000
      outcome:
        classification: keep
        text: "Good price."
    - id: default
      outcome:
        classification: review
        text: "An advisor will look at this."
        cta: book_appointment
`)

	tables, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table := tables["liability"]
	require.Len(t, table, 2)
	assert.Equal(t, "cheap", table[0].ID)
	assert.Equal(t, OpLt, table[0].Conditions[0].Op)
	assert.True(t, table[1].CatchAll())
	assert.Equal(t, "book_appointment", table[1].Outcome.CallToAction)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeRuleFile(t, "categories: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_NoCategories(t *testing.T) {
	path := writeRuleFile(t, "categories: {}")
	_, err := Load(path)
	assert.ErrorContains(t, err, "no categories")
}

func TestLoad_RejectsTableWithoutCatchAll(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability:
    - id: cheap
      when:
        - fact: premium_cents
          op: lt
          value: 5000
      outcome:
        classification: keep
        text: ok
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "not a catch-all")
}

func TestLoad_RejectsCatchAllBeforeEnd(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability:
    - id: default
      outcome:
        classification: review
        text: ok
    - id: cheap
      when:
        - fact: premium_cents
          op: lt
          value: 5000
      outcome:
        classification: keep
        text: ok
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "is not last")
}

func TestLoad_RejectsDuplicateRuleIDs(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability:
    - id: same
      when:
        - fact: state
          op: eq
          value: active
      outcome:
        classification: keep
        text: ok
    - id: same
      outcome:
        classification: review
        text: ok
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "duplicate rule id")
}

func TestLoad_RejectsUnknownOperator(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability:
    - id: bad
      when:
        - fact: state
          op: matches
          value: active
      outcome:
        classification: keep
        text: ok
    - id: default
      outcome:
        classification: review
        text: ok
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown operator")
}

func TestLoad_RejectsConditionWithoutFact(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability:
    - id: bad
      when:
        - op: eq
          value: active
      outcome:
        classification: keep
        text: ok
    - id: default
      outcome:
        classification: review
        text: ok
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "condition without a fact")
}

func TestLoad_RejectsEmptyTable(t *testing.T) {
	path := writeRuleFile(t, `
categories:
  liability: []
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "empty rule table")
}
