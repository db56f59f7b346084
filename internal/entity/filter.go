package entity

import (
	"fmt"
	"reflect"
	"strings"
)

// Op is a filter condition operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpIn       Op = "in"       // value is a slice of candidates
	OpContains Op = "contains" // substring on strings, membership on slices
)

// Predicate is the escape hatch for filters that can't be expressed as
// conditions. Predicate filters are cached by function identity, not
// structure: pass the same func value to get the same QueryView back.
type Predicate func(*Entity) bool

// Cond is one declarative filter condition.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter selects entities. The zero value (also exported as All) matches
// every entity. Filters are immutable; And returns a new filter.
type Filter struct {
	conds []Cond
	pred  Predicate
}

// All matches every entity.
var All = Filter{}

// Where starts a declarative filter with one condition.
func Where(field string, op Op, value any) Filter {
	return Filter{conds: []Cond{{Field: field, Op: op, Value: value}}}
}

// Eq is shorthand for Where(field, OpEq, value).
func Eq(field string, value any) Filter {
	return Where(field, OpEq, value)
}

// Match wraps a predicate as a filter.
func Match(p Predicate) Filter {
	return Filter{pred: p}
}

// And appends a condition, returning a new filter.
func (f Filter) And(field string, op Op, value any) Filter {
	conds := make([]Cond, len(f.conds), len(f.conds)+1)
	copy(conds, f.conds)
	return Filter{conds: append(conds, Cond{Field: field, Op: op, Value: value}), pred: f.pred}
}

// Matches reports whether the entity satisfies every condition and the
// predicate, if any. A condition on a field the entity does not define never
// matches.
func (f Filter) Matches(e *Entity) bool {
	for _, c := range f.conds {
		v, ok := e.Get(c.Field)
		if !ok {
			return false
		}
		if !evalCond(c, v) {
			return false
		}
	}
	if f.pred != nil && !f.pred(e) {
		return false
	}
	return true
}

func evalCond(c Cond, v any) bool {
	switch c.Op {
	case OpEq:
		return EqualValues(v, c.Value)
	case OpNeq:
		return !EqualValues(v, c.Value)
	case OpLt:
		return CompareValues(v, c.Value) < 0
	case OpLte:
		return CompareValues(v, c.Value) <= 0
	case OpGt:
		return CompareValues(v, c.Value) > 0
	case OpGte:
		return CompareValues(v, c.Value) >= 0
	case OpIn:
		return containsValue(c.Value, v)
	case OpContains:
		if s, ok := v.(string); ok {
			return strings.Contains(s, FormatValue(c.Value))
		}
		return containsValue(v, c.Value)
	default:
		return false
	}
}

// containsValue reports whether haystack (a slice of any element type)
// contains needle under value equality.
func containsValue(haystack, needle any) bool {
	rv := reflect.ValueOf(haystack)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if EqualValues(rv.Index(i).Interface(), needle) {
			return true
		}
	}
	return false
}

// Key returns the filter's canonical form, used to memoize QueryView
// construction: structurally equal filters share a key.
func (f Filter) Key() string {
	if len(f.conds) == 0 && f.pred == nil {
		return "all"
	}
	var b strings.Builder
	for i, c := range f.conds {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s %s %s", c.Field, c.Op, ValueKey(c.Value))
	}
	if f.pred != nil {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "fn:0x%x", reflect.ValueOf(f.pred).Pointer())
	}
	return b.String()
}
