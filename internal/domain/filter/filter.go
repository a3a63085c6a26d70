// Package filter holds exact-match metadata filters applied to index queries.
package filter

import (
	"fmt"
	"sort"
)

// Condition is a single exact match on a metadata key.
type Condition struct {
	key   string
	value string
}

// NewMatch creates an exact match condition.
func NewMatch(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the metadata key.
func (c Condition) Key() string { return c.key }

// Value returns the expected value.
func (c Condition) Value() string { return c.value }

// Expression is a conjunction of conditions. The zero value matches everything.
type Expression struct {
	conds []Condition
}

// And returns a copy of e with c appended.
func (e Expression) And(c Condition) Expression {
	conds := make([]Condition, 0, len(e.conds)+1)
	conds = append(conds, e.conds...)
	return Expression{conds: append(conds, c)}
}

// Where builds an expression from a key/value map. Keys are sorted so the
// resulting query string is stable.
func Where(m map[string]string) (Expression, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var e Expression
	for _, k := range keys {
		c, err := NewMatch(k, m[k])
		if err != nil {
			return Expression{}, err
		}
		e = e.And(c)
	}
	return e, nil
}

// Conditions returns the conditions in insertion order.
func (e Expression) Conditions() []Condition { return e.conds }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conds) == 0 }

// Matches evaluates the expression against a metadata map.
func (e Expression) Matches(meta map[string]string) bool {
	for _, c := range e.conds {
		if meta[c.key] != c.value {
			return false
		}
	}
	return true
}
