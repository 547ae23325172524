package analysis

import (
	"math"
	"sort"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/table"
)

// Facet is a filterable column and its sorted distinct values.
type Facet struct {
	Column string `json:"column"`
	Values []any  `json:"values"`
}

// Facets builds filter facets from the full dataset. A column qualifies when
// its first-row value is a string, its header is not identifier-like and it
// has between FacetMinValues and FacetMaxValues distinct non-absent values.
func Facets(ds table.Dataset) []Facet {
	if len(ds) == 0 {
		return nil
	}
	first := ds[0]
	var out []Facet
	for _, col := range first.Keys() {
		if table.KindOf(first.Value(col)) != table.KindString || IsIdentifier(col) {
			continue
		}
		values := distinct(ds, col)
		if len(values) < config.FacetMinValues || len(values) > config.FacetMaxValues {
			continue
		}
		sortValues(values)
		out = append(out, Facet{Column: col, Values: values})
	}
	return out
}

// FacetFor returns the facet for column, if any.
func FacetFor(facets []Facet, column string) (Facet, bool) {
	for _, f := range facets {
		if f.Column == column {
			return f, true
		}
	}
	return Facet{}, false
}

// nanKey stands in for every NaN during deduplication.
type nanKey struct{}

func distinct(ds table.Dataset, col string) []any {
	seen := make(map[any]struct{})
	var values []any
	for _, r := range ds {
		v := r.Value(col)
		if v == nil {
			continue
		}
		if f, ok := table.Number(v); ok {
			v = f
		}
		key := v
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			key = nanKey{}
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, v)
	}
	return values
}

// sortValues orders values by their display text.
func sortValues(values []any) {
	sort.SliceStable(values, func(i, j int) bool {
		return table.Format(values[i]) < table.Format(values[j])
	})
}
