package entity

import (
	"fmt"
	"reflect"
	"strings"
)

// Sort orders entities within a query view. Key is the canonical form used
// for QueryView memoization; structurally equal sorts share a key.
type Sort interface {
	Compare(a, b *Entity) int
	Key() string
}

type sortField struct {
	field string
	desc  bool
}

// SortSpec is a declarative multi-field sort, resolved once at construction.
// The zero value sorts nothing (every pair compares equal).
type SortSpec struct {
	fields []sortField
}

// SortBy starts an ascending sort on field.
func SortBy(field string) SortSpec {
	return SortSpec{fields: []sortField{{field: field}}}
}

// Desc flips the most recently added field to descending.
func (s SortSpec) Desc() SortSpec {
	fields := append([]sortField(nil), s.fields...)
	if len(fields) > 0 {
		fields[len(fields)-1].desc = true
	}
	return SortSpec{fields: fields}
}

// Then adds an ascending tiebreaker field.
func (s SortSpec) Then(field string) SortSpec {
	fields := append([]sortField(nil), s.fields...)
	return SortSpec{fields: append(fields, sortField{field: field})}
}

// Compare implements Sort. Missing fields order before present ones.
func (s SortSpec) Compare(a, b *Entity) int {
	for _, f := range s.fields {
		av, _ := a.Get(f.field)
		bv, _ := b.Get(f.field)
		c := CompareValues(av, bv)
		if c == 0 {
			continue
		}
		if f.desc {
			return -c
		}
		return c
	}
	return 0
}

// Key implements Sort.
func (s SortSpec) Key() string {
	if len(s.fields) == 0 {
		return "none"
	}
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		dir := "asc"
		if f.desc {
			dir = "desc"
		}
		parts[i] = f.field + " " + dir
	}
	return strings.Join(parts, ",")
}

// CompareFunc adapts a raw comparator to Sort. Comparator sorts are cached by
// function identity: pass the same func value to share a QueryView.
type CompareFunc func(a, b *Entity) int

// Compare implements Sort.
func (f CompareFunc) Compare(a, b *Entity) int {
	return f(a, b)
}

// Key implements Sort.
func (f CompareFunc) Key() string {
	return fmt.Sprintf("cmp:0x%x", reflect.ValueOf(f).Pointer())
}
