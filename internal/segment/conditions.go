package segment

import (
	"encoding/json"
	"fmt"
	"strings"
)

type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// Condition is one attribute comparison leaf.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"` // > < >= <= =
	Value    string `json:"value"`
}

// Conditions is a boolean group node: leaf comparisons combined by
// Operator, plus optional nested groups. A group with no conditions and
// no nested groups is vacuously true under AND and false under OR.
type Conditions struct {
	Operator   BoolOp       `json:"operator"`
	Conditions []Condition  `json:"conditions,omitempty"`
	Groups     []Conditions `json:"groups,omitempty"`
}

var comparisonOps = map[string]struct{}{
	">": {}, "<": {}, ">=": {}, "<=": {}, "=": {},
}

// Parse decodes a serialized predicate tree.
func Parse(raw string) (Conditions, error) {
	var c Conditions
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Conditions{}, fmt.Errorf("parse conditions: %w", err)
	}
	return c, nil
}

// Serialize encodes the tree for storage alongside the segment.
func (c Conditions) Serialize() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize conditions: %w", err)
	}
	return string(b), nil
}

func validOp(op string) bool {
	_, ok := comparisonOps[strings.TrimSpace(op)]
	return ok
}
