package table

import (
	"math"
	"strconv"
)

// Kind is the primitive type of a cell value.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
)

// KindOf classifies a value. Integer types are treated as numbers so callers
// building rows by hand do not need to convert to float64 first.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindAbsent
	case string:
		return KindString
	case float64, float32, int, int64, int32:
		return KindNumber
	case bool:
		return KindBool
	}
	return KindAbsent
}

// Number returns v as float64 when it is numeric.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// Falsy reports whether v counts as "no value" for labelling purposes:
// absent, empty string, zero, NaN or false.
func Falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	}
	if f, ok := Number(v); ok {
		return f == 0 || math.IsNaN(f)
	}
	return false
}

// StrictEqual compares two values without coercion: a string never equals a
// number, and numbers compare by value.
func StrictEqual(a, b any) bool {
	fa, aNum := Number(a)
	fb, bNum := Number(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return a == b
}

// Format renders a value the way it is shown in labels and facet lists.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	if f, ok := Number(v); ok {
		if math.IsNaN(f) {
			return "NaN"
		}
		if math.IsInf(f, 0) {
			if f > 0 {
				return "Infinity"
			}
			return "-Infinity"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
