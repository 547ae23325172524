package analysis

import "github.com/vinodismyname/sheetlens/internal/table"

// Filter is the single optional equality filter. It is a value type: each
// change produces a new Filter.
type Filter struct {
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Active reports whether both column and value are set.
func (f Filter) Active() bool {
	return f.Column != "" && f.Value != ""
}

// WithColumn selects a filter column and clears the value.
func (f Filter) WithColumn(column string) Filter {
	return Filter{Column: column}
}

// WithValue sets the value for the current column.
func (f Filter) WithValue(value string) Filter {
	f.Value = value
	return f
}

// Apply returns the working subset. An inactive filter returns ds itself.
func Apply(ds table.Dataset, f Filter) table.Dataset {
	if !f.Active() {
		return ds
	}
	out := make(table.Dataset, 0)
	for _, r := range ds {
		if table.StrictEqual(r.Value(f.Column), f.Value) {
			out = append(out, r)
		}
	}
	return out
}
