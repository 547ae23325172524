package analysis

import "github.com/vinodismyname/sheetlens/internal/table"

// Options is the per-pass configuration threaded into Analyze.
type Options struct {
	Filter     Filter
	Mode       string
	MinColumns int
}

// Result is the full set of views derived from one working subset.
type Result struct {
	RowCount       int         `json:"row_count"`
	AllColumns     []string    `json:"all_columns"`
	NumericColumns []string    `json:"numeric_columns"`
	Totals         []Total     `json:"totals"`
	Charts         []ChartSpec `json:"charts"`
	Table          Projection  `json:"table"`
}

// Analyze filters ds and derives every view from the working subset. It
// returns nil when the subset is empty, which callers present as "no data".
func Analyze(ds table.Dataset, opts Options) *Result {
	subset := Apply(ds, opts.Filter)
	if len(subset) == 0 {
		return nil
	}
	cls := Classify(subset)
	return &Result{
		RowCount:       len(subset),
		AllColumns:     cls.Columns,
		NumericColumns: cls.Numeric,
		Totals:         Totals(subset, cls.Numeric),
		Charts:         Charts(subset, cls.Categorical, opts.Filter.Column),
		Table:          Project(subset, ProjectionOptions{Mode: opts.Mode, MinColumns: opts.MinColumns}),
	}
}
