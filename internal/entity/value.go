package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value comparison used by filters, sorts, and index bucket keys. Values are
// grouped into classes ordered nil < bool < number < time < string; values of
// different classes compare by class, values of the same class by value.
// Anything unrecognized falls back to its fmt representation in the string
// class, which keeps the ordering total.

type valueClass int

const (
	classNil valueClass = iota
	classBool
	classNumber
	classTime
	classString
)

type normalized struct {
	class valueClass
	b     bool
	n     float64
	t     time.Time
	s     string
}

func normalizeValue(v any) normalized {
	switch x := v.(type) {
	case nil:
		return normalized{class: classNil}
	case bool:
		return normalized{class: classBool, b: x}
	case int:
		return normalized{class: classNumber, n: float64(x)}
	case int8:
		return normalized{class: classNumber, n: float64(x)}
	case int16:
		return normalized{class: classNumber, n: float64(x)}
	case int32:
		return normalized{class: classNumber, n: float64(x)}
	case int64:
		return normalized{class: classNumber, n: float64(x)}
	case uint:
		return normalized{class: classNumber, n: float64(x)}
	case uint8:
		return normalized{class: classNumber, n: float64(x)}
	case uint16:
		return normalized{class: classNumber, n: float64(x)}
	case uint32:
		return normalized{class: classNumber, n: float64(x)}
	case uint64:
		return normalized{class: classNumber, n: float64(x)}
	case float32:
		return normalized{class: classNumber, n: float64(x)}
	case float64:
		return normalized{class: classNumber, n: x}
	case time.Time:
		return normalized{class: classTime, t: x}
	case string:
		return normalized{class: classString, s: x}
	case fmt.Stringer:
		return normalized{class: classString, s: x.String()}
	default:
		return normalized{class: classString, s: fmt.Sprintf("%v", x)}
	}
}

// CompareValues imposes a total order over field values.
func CompareValues(a, b any) int {
	na, nb := normalizeValue(a), normalizeValue(b)
	if na.class != nb.class {
		if na.class < nb.class {
			return -1
		}
		return 1
	}
	switch na.class {
	case classNil:
		return 0
	case classBool:
		switch {
		case na.b == nb.b:
			return 0
		case !na.b:
			return -1
		default:
			return 1
		}
	case classNumber:
		switch {
		case na.n < nb.n:
			return -1
		case na.n > nb.n:
			return 1
		default:
			return 0
		}
	case classTime:
		return na.t.Compare(nb.t)
	default:
		return strings.Compare(na.s, nb.s)
	}
}

// EqualValues reports whether two field values are equal under the same
// normalization CompareValues uses.
func EqualValues(a, b any) bool {
	return CompareValues(a, b) == 0
}

// ValueKey returns the canonical string form of a field value, used as an
// index bucket key and in query cache keys. Keys are class-tagged so that
// ValueKey(a) == ValueKey(b) exactly when EqualValues(a, b): the number 1
// and the string "1" get distinct keys. String values are quoted, so a key
// can never leak its separator characters into a composite cache key.
func ValueKey(v any) string {
	n := normalizeValue(v)
	switch n.class {
	case classNil:
		return "nil"
	case classBool:
		return "b:" + strconv.FormatBool(n.b)
	case classNumber:
		return "n:" + strconv.FormatFloat(n.n, 'g', -1, 64)
	case classTime:
		return "t:" + n.t.UTC().Format(time.RFC3339Nano)
	default:
		return "s:" + strconv.Quote(n.s)
	}
}

// FormatValue renders a field value for humans: diagnostics, event feed
// diffs, substring matching. Unlike ValueKey it carries no class tag and
// no quoting.
func FormatValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v)
}
