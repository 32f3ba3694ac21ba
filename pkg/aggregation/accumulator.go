package aggregation

import (
	"math"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// AccumulatorOp is a group accumulator.
type AccumulatorOp string

const (
	AccSum      AccumulatorOp = "$sum"
	AccAvg      AccumulatorOp = "$avg"
	AccCount    AccumulatorOp = "$count"
	AccPush     AccumulatorOp = "$push"
	AccMin      AccumulatorOp = "$min"
	AccMax      AccumulatorOp = "$max"
	AccFirst    AccumulatorOp = "$first"
	AccLast     AccumulatorOp = "$last"
	AccAddToSet AccumulatorOp = "$addToSet"
)

// Accumulator names an output field of a group and how to fold its values.
type Accumulator struct {
	Field string
	Op    AccumulatorOp
	Expr  Expression
}

func Sum(field string, expr Expression) Accumulator { return Accumulator{field, AccSum, expr} }
func Avg(field string, expr Expression) Accumulator { return Accumulator{field, AccAvg, expr} }
func Count(field string) Accumulator                { return Accumulator{Field: field, Op: AccCount} }
func Push(field string, expr Expression) Accumulator {
	return Accumulator{field, AccPush, expr}
}
func Min(field string, expr Expression) Accumulator   { return Accumulator{field, AccMin, expr} }
func Max(field string, expr Expression) Accumulator   { return Accumulator{field, AccMax, expr} }
func First(field string, expr Expression) Accumulator { return Accumulator{field, AccFirst, expr} }
func Last(field string, expr Expression) Accumulator  { return Accumulator{field, AccLast, expr} }
func AddToSet(field string, expr Expression) Accumulator {
	return Accumulator{field, AccAddToSet, expr}
}

func (a Accumulator) newState() accState {
	switch a.Op {
	case AccSum:
		return &sumState{allInt: true}
	case AccAvg:
		return &avgState{}
	case AccCount:
		return &countState{}
	case AccPush:
		return &pushState{values: []interface{}{}}
	case AccMin:
		return &extremeState{want: -1}
	case AccMax:
		return &extremeState{want: 1}
	case AccFirst:
		return &firstState{}
	case AccLast:
		return &lastState{}
	case AccAddToSet:
		return &setState{values: []interface{}{}, seen: map[string]struct{}{}}
	}
	return nil
}

// accState folds the values of one accumulator within one partition.
type accState interface {
	add(v interface{}, found bool)
	result() interface{}
}

// sumState keeps an exact int64 total until a non-integer (or an overflow)
// forces a float64 result. Non-numeric values are ignored.
type sumState struct {
	ints   int64
	floats float64
	allInt bool
}

func (s *sumState) add(v interface{}, found bool) {
	if !found {
		return
	}
	if i, ok := domain.ToInt64(v); ok && s.allInt {
		next := s.ints + i
		if (i > 0 && next < s.ints) || (i < 0 && next > s.ints) {
			s.allInt = false
			s.floats = float64(s.ints) + float64(i)
			return
		}
		s.ints = next
		return
	}
	f, ok := domain.ToFloat64(v)
	if !ok {
		return
	}
	if s.allInt {
		s.allInt = false
		s.floats = float64(s.ints)
	}
	s.floats += f
}

func (s *sumState) result() interface{} {
	if s.allInt {
		return s.ints
	}
	return s.floats
}

// avgState averages numeric values. The average of no values is null.
type avgState struct {
	sum float64
	n   int
}

func (s *avgState) add(v interface{}, found bool) {
	if !found {
		return
	}
	if f, ok := domain.ToFloat64(v); ok && !math.IsNaN(f) {
		s.sum += f
		s.n++
	}
}

func (s *avgState) result() interface{} {
	if s.n == 0 {
		return nil
	}
	return s.sum / float64(s.n)
}

type countState struct {
	n int64
}

func (s *countState) add(interface{}, bool) { s.n++ }
func (s *countState) result() interface{}   { return s.n }

// pushState collects present values in input order.
type pushState struct {
	values []interface{}
}

func (s *pushState) add(v interface{}, found bool) {
	if found {
		s.values = append(s.values, v)
	}
}

func (s *pushState) result() interface{} { return s.values }

// extremeState tracks the minimum or maximum, ignoring null and absent values.
type extremeState struct {
	want  int
	best  interface{}
	valid bool
}

func (s *extremeState) add(v interface{}, found bool) {
	if !found || v == nil {
		return
	}
	if !s.valid || domain.CompareValues(v, s.best) == s.want {
		s.best = v
		s.valid = true
	}
}

func (s *extremeState) result() interface{} { return s.best }

type firstState struct {
	value interface{}
	set   bool
}

func (s *firstState) add(v interface{}, found bool) {
	if s.set {
		return
	}
	s.set = true
	if found {
		s.value = v
	}
}

func (s *firstState) result() interface{} { return s.value }

type lastState struct {
	value interface{}
}

func (s *lastState) add(v interface{}, found bool) {
	if found {
		s.value = v
	} else {
		s.value = nil
	}
}

func (s *lastState) result() interface{} { return s.value }

// setState collects distinct present values in first-seen order.
type setState struct {
	values []interface{}
	seen   map[string]struct{}
}

func (s *setState) add(v interface{}, found bool) {
	if !found {
		return
	}
	key := domain.CanonicalKey(v)
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, v)
}

func (s *setState) result() interface{} { return s.values }
