package segment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/engagekit/crm/internal/model"
	"github.com/shopspring/decimal"
)

// FieldSpec binds a predicate field name to a customer attribute: how to
// read it and how to parse a literal of its type.
type FieldSpec struct {
	Get   func(c *model.Customer) decimal.Decimal
	Parse func(raw string) (decimal.Decimal, error)
}

// Evaluator compiles predicate trees against a field registry. Strict mode
// rejects unrecognized fields at compile time; lenient mode drops their
// leaves, which under AND means they constrain nothing (historical
// behavior of the conditions format).
type Evaluator struct {
	fields map[string]FieldSpec
	strict bool
}

// Predicate reports whether one customer matches a compiled tree.
type Predicate func(c *model.Customer) bool

// NewEvaluator builds an evaluator over the given registry.
func NewEvaluator(fields map[string]FieldSpec, strict bool) *Evaluator {
	return &Evaluator{fields: fields, strict: strict}
}

// DefaultFields is the registry for the current customer domain.
func DefaultFields() map[string]FieldSpec {
	return map[string]FieldSpec{
		"totalSpending": {
			Get: func(c *model.Customer) decimal.Decimal { return c.TotalSpending },
			Parse: func(raw string) (decimal.Decimal, error) {
				return decimal.NewFromString(strings.TrimSpace(raw))
			},
		},
		"visits": {
			Get: func(c *model.Customer) decimal.Decimal {
				return decimal.NewFromInt(int64(c.Visits))
			},
			Parse: func(raw string) (decimal.Decimal, error) {
				n, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					return decimal.Decimal{}, err
				}
				return decimal.NewFromInt(int64(n)), nil
			},
		},
	}
}

// Compile validates the tree and returns a matcher. Value literals are
// parsed once here, not per customer.
func (e *Evaluator) Compile(tree Conditions) (Predicate, error) {
	return e.compileGroup(tree)
}

func (e *Evaluator) compileGroup(g Conditions) (Predicate, error) {
	if g.Operator != OpAnd && g.Operator != OpOr {
		return nil, fmt.Errorf("invalid boolean operator %q", g.Operator)
	}

	var preds []Predicate
	for _, c := range g.Conditions {
		p, err := e.compileLeaf(c)
		if err != nil {
			return nil, err
		}
		if p != nil {
			preds = append(preds, p)
		}
	}
	for _, sub := range g.Groups {
		p, err := e.compileGroup(sub)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}

	if g.Operator == OpAnd {
		return func(c *model.Customer) bool {
			for _, p := range preds {
				if !p(c) {
					return false
				}
			}
			return true
		}, nil
	}
	return func(c *model.Customer) bool {
		for _, p := range preds {
			if p(c) {
				return true
			}
		}
		return false
	}, nil
}

// compileLeaf returns (nil, nil) for a dropped unrecognized field in
// lenient mode.
func (e *Evaluator) compileLeaf(c Condition) (Predicate, error) {
	spec, ok := e.fields[c.Field]
	if !ok {
		if e.strict {
			return nil, fmt.Errorf("unrecognized field %q", c.Field)
		}
		return nil, nil
	}
	if !validOp(c.Operator) {
		return nil, fmt.Errorf("invalid comparison operator %q", c.Operator)
	}
	want, err := spec.Parse(c.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for field %q: %w", c.Value, c.Field, err)
	}

	op := strings.TrimSpace(c.Operator)
	return func(cust *model.Customer) bool {
		cmp := spec.Get(cust).Cmp(want)
		switch op {
		case ">":
			return cmp > 0
		case "<":
			return cmp < 0
		case ">=":
			return cmp >= 0
		case "<=":
			return cmp <= 0
		default: // "="
			return cmp == 0
		}
	}, nil
}

// Filter returns the customers matching the compiled predicate, in input
// order.
func Filter(customers []model.Customer, p Predicate) []model.Customer {
	out := make([]model.Customer, 0, len(customers))
	for i := range customers {
		if p(&customers[i]) {
			out = append(out, customers[i])
		}
	}
	return out
}
