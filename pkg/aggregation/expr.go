package aggregation

import (
	"sort"
	"strings"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// Expression computes a value from a single document. The bool result is
// false when the value is absent, which is distinct from a present null.
type Expression interface {
	Eval(doc domain.Document) (interface{}, bool, error)
}

// FieldRef reads a dotted field path from the document.
type FieldRef string

// Field returns an expression reading the given dotted path.
func Field(path string) FieldRef { return FieldRef(strings.TrimPrefix(path, "$")) }

func (f FieldRef) Eval(doc domain.Document) (interface{}, bool, error) {
	v, found := domain.Lookup(doc, string(f))
	return v, found, nil
}

// Literal is a constant value.
type Literal struct {
	Value interface{}
}

// Lit returns a literal expression.
func Lit(v interface{}) Literal { return Literal{Value: domain.Normalize(v)} }

func (l Literal) Eval(domain.Document) (interface{}, bool, error) {
	return l.Value, true, nil
}

// ObjectExpr builds a document from named sub-expressions. Members that
// evaluate to absent are omitted.
type ObjectExpr map[string]Expression

func (o ObjectExpr) Eval(doc domain.Document) (interface{}, bool, error) {
	out := make(domain.Document, len(o))
	for _, name := range o.names() {
		v, found, err := o[name].Eval(doc)
		if err != nil {
			return nil, false, err
		}
		if found {
			out[name] = v
		}
	}
	return out, true, nil
}

func (o ObjectExpr) names() []string {
	names := make([]string, 0, len(o))
	for k := range o {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ArrayExpr builds a list from sub-expressions. Absent members become null.
type ArrayExpr []Expression

func (a ArrayExpr) Eval(doc domain.Document) (interface{}, bool, error) {
	out := make([]interface{}, len(a))
	for i, e := range a {
		v, _, err := e.Eval(doc)
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

// ArithOp names an arithmetic operator.
type ArithOp string

const (
	OpMultiply ArithOp = "$multiply"
	OpAdd      ArithOp = "$add"
	OpSubtract ArithOp = "$subtract"
	OpDivide   ArithOp = "$divide"
)

// Arithmetic applies an operator to its operands. Any absent, null or
// non-numeric operand makes the result absent.
type Arithmetic struct {
	Op   ArithOp
	Args []Expression
}

func Multiply(args ...Expression) Arithmetic { return Arithmetic{Op: OpMultiply, Args: args} }
func Add(args ...Expression) Arithmetic      { return Arithmetic{Op: OpAdd, Args: args} }

func Subtract(a, b Expression) Arithmetic { return Arithmetic{Op: OpSubtract, Args: []Expression{a, b}} }
func Divide(a, b Expression) Arithmetic   { return Arithmetic{Op: OpDivide, Args: []Expression{a, b}} }

func (a Arithmetic) Eval(doc domain.Document) (interface{}, bool, error) {
	if err := a.validate(); err != nil {
		return nil, false, err
	}

	operands := make([]interface{}, len(a.Args))
	for i, arg := range a.Args {
		v, found, err := arg.Eval(doc)
		if err != nil {
			return nil, false, err
		}
		if !found || domain.KindOf(v) != domain.KindNumber {
			return nil, false, nil
		}
		operands[i] = v
	}

	switch a.Op {
	case OpAdd:
		return foldNumbers(operands, 0, func(x, y int64) (int64, bool) {
			s := x + y
			return s, (s > x) == (y > 0)
		}, func(x, y float64) float64 { return x + y }), true, nil
	case OpMultiply:
		return foldNumbers(operands, 1, func(x, y int64) (int64, bool) {
			if x == 0 || y == 0 {
				return 0, true
			}
			p := x * y
			return p, p/y == x
		}, func(x, y float64) float64 { return x * y }), true, nil
	case OpSubtract:
		x, y := operands[0], operands[1]
		if ix, ok := domain.ToInt64(x); ok {
			if iy, ok := domain.ToInt64(y); ok {
				return ix - iy, true, nil
			}
		}
		fx, _ := domain.ToFloat64(x)
		fy, _ := domain.ToFloat64(y)
		return fx - fy, true, nil
	case OpDivide:
		fx, _ := domain.ToFloat64(operands[0])
		fy, _ := domain.ToFloat64(operands[1])
		if fy == 0 {
			return nil, false, domain.Evaluation("%s: division by zero", a.Op)
		}
		return fx / fy, true, nil
	}
	return nil, false, domain.Validation("unknown operator %s", a.Op)
}

func (a Arithmetic) validate() error {
	switch a.Op {
	case OpAdd, OpMultiply:
		if len(a.Args) == 0 {
			return domain.Validation("%s requires at least one operand", a.Op)
		}
	case OpSubtract, OpDivide:
		if len(a.Args) != 2 {
			return domain.Validation("%s requires exactly two operands", a.Op)
		}
	default:
		return domain.Validation("unknown operator %s", a.Op)
	}
	for _, arg := range a.Args {
		if arg == nil {
			return domain.Validation("%s has a nil operand", a.Op)
		}
	}
	return nil
}

// foldNumbers stays in int64 while every operand is an integer and the
// running result does not overflow.
func foldNumbers(operands []interface{}, identity int64, intOp func(x, y int64) (int64, bool), floatOp func(x, y float64) float64) interface{} {
	acc := identity
	for i, v := range operands {
		iv, ok := domain.ToInt64(v)
		if !ok {
			return foldFloats(float64(acc), operands[i:], floatOp)
		}
		next, exact := intOp(acc, iv)
		if !exact {
			return foldFloats(float64(acc), operands[i:], floatOp)
		}
		acc = next
	}
	return acc
}

func foldFloats(acc float64, operands []interface{}, op func(x, y float64) float64) float64 {
	for _, v := range operands {
		f, _ := domain.ToFloat64(v)
		acc = op(acc, f)
	}
	return acc
}

// CompileExpression turns a decoded expression ("$path", {"$multiply": [...]},
// {"name": expr}, a list or a literal) into an Expression.
func CompileExpression(raw interface{}) (Expression, error) {
	switch t := raw.(type) {
	case Expression:
		return t, nil
	case string:
		if !strings.HasPrefix(t, "$") {
			return Lit(t), nil
		}
		if strings.HasPrefix(t, "$$") {
			return nil, domain.Validation("variables are not supported: %q", t)
		}
		if len(t) == 1 {
			return nil, domain.Validation("empty field reference")
		}
		return Field(t), nil
	}

	if list, ok := domain.AsList(raw); ok {
		out := make(ArrayExpr, len(list))
		for i, elem := range list {
			e, err := CompileExpression(elem)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	}

	doc, ok := domain.AsDocument(raw)
	if !ok {
		return Lit(raw), nil
	}
	if len(doc) == 1 {
		for key, arg := range doc {
			if strings.HasPrefix(key, "$") {
				return compileOperator(key, arg)
			}
		}
	}

	out := make(ObjectExpr, len(doc))
	for key, value := range doc {
		if strings.HasPrefix(key, "$") {
			return nil, domain.Validation("operator %s must be the only key of its object", key)
		}
		e, err := CompileExpression(value)
		if err != nil {
			return nil, err
		}
		out[key] = e
	}
	return out, nil
}

func compileOperator(op string, arg interface{}) (Expression, error) {
	switch op {
	case "$literal":
		return Literal{Value: domain.Normalize(arg)}, nil
	case "$date":
		s, ok := arg.(string)
		if !ok {
			return nil, domain.Validation("$date expects a string")
		}
		t, err := domain.ParseTime(s)
		if err != nil {
			return nil, err
		}
		return Literal{Value: t}, nil
	case string(OpMultiply), string(OpAdd), string(OpSubtract), string(OpDivide):
		list, ok := domain.AsList(arg)
		if !ok {
			list = []interface{}{arg}
		}
		args := make([]Expression, len(list))
		for i, elem := range list {
			e, err := CompileExpression(elem)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		expr := Arithmetic{Op: ArithOp(op), Args: args}
		if err := expr.validate(); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, domain.Validation("unsupported expression operator %s", op)
}
