// Package analysis derives views from a canonical dataset: column roles,
// filter facets, the filtered working subset, ranked category charts and the
// table projection. Every function is a pure function of its inputs; nothing
// is cached between passes.
package analysis

import (
	"strings"

	"github.com/vinodismyname/sheetlens/internal/table"
)

// Role is the analytical role inferred for a column.
type Role string

const (
	RoleUnclassified Role = "unclassified"
	RoleIdentifier   Role = "identifier"
	RoleNumeric      Role = "numeric"
	RoleCategorical  Role = "categorical"
)

// IdentifierKeywords mark code-like columns. Matching is a lower-cased
// substring test, so "id" also hits headers such as "Cantidad".
var IdentifierKeywords = []string{"id", "bip", "codigo"}

// MeasurementKeywords mark per-project measurements that are never summed.
var MeasurementKeywords = []string{"superficie", "avance", "permiso"}

// Classification lists numeric and categorical columns in header order.
//
// Types are read from the first row only. A column whose first value is
// absent, or whose type changes further down, is classified by that first
// value alone.
type Classification struct {
	Columns     []string        `json:"columns"`
	Numeric     []string        `json:"numeric"`
	Categorical []string        `json:"categorical"`
	Roles       map[string]Role `json:"roles"`
}

// IsIdentifier reports whether header matches an identifier keyword.
func IsIdentifier(header string) bool {
	return containsAny(strings.ToLower(header), IdentifierKeywords)
}

func isMeasurement(header string) bool {
	return containsAny(strings.ToLower(header), MeasurementKeywords)
}

// Classify inspects the first row of ds. An empty dataset yields an empty
// classification.
func Classify(ds table.Dataset) Classification {
	c := Classification{Roles: map[string]Role{}}
	if len(ds) == 0 {
		return c
	}
	first := ds[0]
	c.Columns = first.Keys()
	for _, col := range c.Columns {
		kind := table.KindOf(first.Value(col))
		switch {
		case kind == table.KindNumber && !IsIdentifier(col) && !isMeasurement(col):
			c.Numeric = append(c.Numeric, col)
		case kind == table.KindString:
			c.Categorical = append(c.Categorical, col)
		}
		c.Roles[col] = roleOf(col, kind)
	}
	return c
}

func roleOf(col string, kind table.Kind) Role {
	switch {
	case IsIdentifier(col):
		return RoleIdentifier
	case kind == table.KindNumber && !isMeasurement(col):
		return RoleNumeric
	case kind == table.KindString:
		return RoleCategorical
	}
	return RoleUnclassified
}

// Total is the sum of one numeric column over a subset.
type Total struct {
	Column string  `json:"column"`
	Sum    float64 `json:"sum"`
}

// Totals sums each numeric column. Absent and non-numeric cells add zero.
func Totals(ds table.Dataset, numeric []string) []Total {
	out := make([]Total, 0, len(numeric))
	for _, col := range numeric {
		var sum float64
		for _, r := range ds {
			if f, ok := table.Number(r.Value(col)); ok {
				sum += f
			}
		}
		out = append(out, Total{Column: col, Sum: sum})
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
