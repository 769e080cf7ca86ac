package filter

import (
	"fmt"
	"slices"
	"sort"
)

// MaxConditions is the maximum number of conditions per filter.
const MaxConditions = 32

// Expression is an exact-match conjunction: every condition must hold.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must []Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	seen := make(map[string]bool, len(must))
	for _, c := range must {
		if seen[c.key] {
			return Expression{}, fmt.Errorf("duplicate filter key %q", c.key)
		}
		seen[c.key] = true
	}
	return Expression{must: must}, nil
}

// FromMap builds an Expression from key/value pairs. Conditions are ordered by key.
func FromMap(m map[string]string) (Expression, error) {
	if len(m) == 0 {
		return Expression{}, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		c, err := NewMatch(k, m[k])
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	return NewExpression(conds)
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Keys returns the filtered keys in condition order.
func (e Expression) Keys() []string {
	keys := make([]string, len(e.must))
	for i, c := range e.must {
		keys[i] = c.key
	}
	return keys
}

// Matches evaluates the expression against a document. values returns the string forms
// stored under a key; a key matches when any of them equals the condition value.
func (e Expression) Matches(values func(key string) []string) bool {
	for _, c := range e.must {
		if !slices.Contains(values(c.key), c.match) {
			return false
		}
	}
	return true
}

// Condition is a single exact-match clause.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }
