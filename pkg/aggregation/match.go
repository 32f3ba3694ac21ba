package aggregation

import (
	"context"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// CompareOp is a field predicate operator.
type CompareOp string

const (
	OpEq     CompareOp = "$eq"
	OpNe     CompareOp = "$ne"
	OpGt     CompareOp = "$gt"
	OpGte    CompareOp = "$gte"
	OpLt     CompareOp = "$lt"
	OpLte    CompareOp = "$lte"
	OpIn     CompareOp = "$in"
	OpNin    CompareOp = "$nin"
	OpExists CompareOp = "$exists"
)

// Condition tests one field of a document.
type Condition struct {
	Field string
	Op    CompareOp
	Value interface{}
}

func Eq(field string, v interface{}) Condition  { return cond(field, OpEq, v) }
func Ne(field string, v interface{}) Condition  { return cond(field, OpNe, v) }
func Gt(field string, v interface{}) Condition  { return cond(field, OpGt, v) }
func Gte(field string, v interface{}) Condition { return cond(field, OpGte, v) }
func Lt(field string, v interface{}) Condition  { return cond(field, OpLt, v) }
func Lte(field string, v interface{}) Condition { return cond(field, OpLte, v) }

func In(field string, values ...interface{}) Condition {
	return cond(field, OpIn, values)
}

func Nin(field string, values ...interface{}) Condition {
	return cond(field, OpNin, values)
}

func Exists(field string, exists bool) Condition { return cond(field, OpExists, exists) }

func cond(field string, op CompareOp, v interface{}) Condition {
	return Condition{Field: field, Op: op, Value: domain.Normalize(v)}
}

// Match keeps the documents that satisfy every condition.
type Match struct {
	Conditions []Condition
}

// Where builds a Match stage from conditions joined by AND.
func Where(conditions ...Condition) Match { return Match{Conditions: conditions} }

func (Match) Kind() StageKind { return StageMatch }

func (m Match) Validate() error {
	for _, c := range m.Conditions {
		if c.Field == "" {
			return domain.Validation("condition field is empty")
		}
		switch c.Op {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		case OpIn, OpNin:
			if _, ok := domain.AsList(c.Value); !ok {
				return domain.Validation("%s on %q requires a list", c.Op, c.Field)
			}
		case OpExists:
			if _, ok := c.Value.(bool); !ok {
				return domain.Validation("$exists on %q requires a boolean", c.Field)
			}
		default:
			return domain.Validation("unsupported operator %s on %q", c.Op, c.Field)
		}
	}
	return nil
}

// Matches reports whether doc satisfies every condition.
func (m Match) Matches(doc domain.Document) bool {
	for _, c := range m.Conditions {
		if !c.Matches(doc) {
			return false
		}
	}
	return true
}

func (m Match) apply(ctx context.Context, _ *execution, docs []domain.Document) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		if err := checkContext(ctx, i); err != nil {
			return nil, err
		}
		if m.Matches(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Matches evaluates the condition against doc. A list field matches when
// the list itself or any of its elements satisfies the operator. Range
// operators only compare values of the same kind and never match an absent
// field. Equality with null matches both null and absent fields.
func (c Condition) Matches(doc domain.Document) bool {
	v, found := domain.Lookup(doc, c.Field)

	switch c.Op {
	case OpExists:
		want, _ := c.Value.(bool)
		return found == want
	case OpEq:
		return equalsAny(v, found, c.Value)
	case OpNe:
		return !equalsAny(v, found, c.Value)
	case OpIn:
		return inList(v, found, c.Value)
	case OpNin:
		return !inList(v, found, c.Value)
	}

	if !found {
		return false
	}
	for _, candidate := range candidates(v) {
		if domain.KindOf(candidate) != domain.KindOf(c.Value) {
			continue
		}
		cmp := domain.CompareValues(candidate, c.Value)
		switch c.Op {
		case OpGt:
			if cmp > 0 {
				return true
			}
		case OpGte:
			if cmp >= 0 {
				return true
			}
		case OpLt:
			if cmp < 0 {
				return true
			}
		case OpLte:
			if cmp <= 0 {
				return true
			}
		}
	}
	return false
}

func equalsAny(v interface{}, found bool, want interface{}) bool {
	if !found {
		return want == nil
	}
	for _, candidate := range candidates(v) {
		if domain.ValuesEqual(candidate, want) {
			return true
		}
	}
	return false
}

func inList(v interface{}, found bool, list interface{}) bool {
	options, _ := domain.AsList(list)
	for _, option := range options {
		if equalsAny(v, found, option) {
			return true
		}
	}
	return false
}

// candidates returns the value followed by its elements when it is a list.
func candidates(v interface{}) []interface{} {
	list, ok := domain.AsList(v)
	if !ok {
		return []interface{}{v}
	}
	out := make([]interface{}, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}
