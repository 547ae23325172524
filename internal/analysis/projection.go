package analysis

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/table"
)

// Branch names the projection heuristic that produced a table.
type Branch string

const (
	BranchData         Branch = "data"
	BranchHospital     Branch = "hospital"
	BranchConstruction Branch = "construction"
	BranchDefault      Branch = "default"
)

// Hospital report headers and synthesized fields.
const (
	ServiceColumn   = "SERVICIO DE SALUD"
	ProjectColumn   = "NOMBRE DEL PROYECTO"
	TotalColumn     = "Total Registros"
	Unclassified    = "Sin Clasificar"
	classifAccented = "Clasificación"
	classifPlain    = "Clasificacion"
)

// KnownClassifications are listed first, in this order, before any other
// labels, which follow alphabetically.
var KnownClassifications = []string{"Errores de Diseño", "Funcionalidad", "AS/NTB", "Normativa"}

// Projection is the table to present: columns plus either working-subset
// rows or aggregate rows.
type Projection struct {
	Branch     Branch         `json:"branch"`
	Columns    []string       `json:"columns"`
	Rows       []*table.Row   `json:"rows"`
	Aggregates []AggregateRow `json:"-"`
}

// Aggregated reports whether rows are synthesized per-project summaries.
func (p Projection) Aggregated() bool {
	return p.Branch == BranchHospital
}

// AggregateRow summarizes every working-subset row of one project.
type AggregateRow struct {
	Service any
	Project any
	Total   int
	Counts  map[string]int
	// Labels lists the keys of Counts in first-seen row order.
	Labels []string
}

// Row renders the aggregate with the given classification label order.
// Labels the project never saw are omitted.
func (a AggregateRow) Row(labels []string) *table.Row {
	r := table.NewRow()
	r.Set(ServiceColumn, a.Service)
	r.Set(ProjectColumn, a.Project)
	r.Set(TotalColumn, float64(a.Total))
	for _, l := range labels {
		if n, ok := a.Counts[l]; ok {
			r.Set(l, float64(n))
		}
	}
	return r
}

// ProjectionOptions selects the projection mode and its tunables.
type ProjectionOptions struct {
	// Mode "data" forces the strict identifier/project/service view.
	Mode string
	// MinColumns is the fewest resolved columns the construction view needs
	// before falling back to all columns. Zero means config.ProjectionMinCol.
	MinColumns int
}

type projectionInput struct {
	subset  table.Dataset
	columns []string
	opts    ProjectionOptions
}

// projectionRule is one entry of the projection precedence table.
type projectionRule struct {
	branch Branch
	match  func(in projectionInput) bool
	build  func(in projectionInput) Projection
}

var projectionRules = []projectionRule{
	{branch: BranchData, match: matchData, build: buildData},
	{branch: BranchHospital, match: matchHospital, build: buildHospital},
	{branch: BranchConstruction, match: matchConstruction, build: buildConstruction},
	{branch: BranchDefault, match: func(projectionInput) bool { return true }, build: buildDefault},
}

// Project selects the table projection for subset. The first matching rule
// in precedence order wins: explicit data mode, hospital report shape,
// construction tracking shape, then all columns.
func Project(subset table.Dataset, opts ProjectionOptions) Projection {
	in := projectionInput{subset: subset, columns: subset.Columns(), opts: opts}
	for _, rule := range projectionRules {
		if rule.match(in) {
			p := rule.build(in)
			p.Branch = rule.branch
			return p
		}
	}
	return buildDefault(in)
}

func buildDefault(in projectionInput) Projection {
	return Projection{Branch: BranchDefault, Columns: in.columns, Rows: in.subset}
}

// findColumn returns the first column satisfying pred, given its upper- and
// lower-cased forms.
func findColumn(columns []string, pred func(upper, lower string) bool) string {
	for _, c := range columns {
		if pred(strings.ToUpper(c), strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

func isBIP(upper, _ string) bool {
	return strings.Contains(upper, "BIP") || strings.Contains(upper, "CÓDIGO")
}

func isServiceHealth(upper, _ string) bool {
	return strings.Contains(upper, "SERVICIO") && strings.Contains(upper, "SALUD")
}

func compact(cols ...string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func matchData(in projectionInput) bool {
	return in.opts.Mode == config.ModeData
}

func buildData(in projectionInput) Projection {
	cols := compact(
		findColumn(in.columns, isBIP),
		findColumn(in.columns, func(_, lower string) bool {
			return strings.Contains(lower, "proyecto") || strings.Contains(lower, "obra")
		}),
		findColumn(in.columns, isServiceHealth),
	)
	if len(cols) == 0 {
		cols = in.columns
	}
	return Projection{Columns: cols, Rows: in.subset}
}

func matchHospital(in projectionInput) bool {
	return hasColumn(in.columns, ServiceColumn) && hasColumn(in.columns, ProjectColumn)
}

func buildHospital(in projectionInput) Projection {
	aggs := Aggregate(in.subset)
	labels := ClassificationLabels(aggs)
	rows := make([]*table.Row, len(aggs))
	for i, a := range aggs {
		rows[i] = a.Row(labels)
	}
	cols := append([]string{ServiceColumn, ProjectColumn, TotalColumn}, labels...)
	return Projection{Columns: cols, Rows: rows, Aggregates: aggs}
}

// Aggregate builds one row per distinct project name, skipping rows without
// one, ordered by descending record count (ties keep first-seen order).
func Aggregate(subset table.Dataset) []AggregateRow {
	index := make(map[string]int)
	var aggs []AggregateRow
	for _, r := range subset {
		project := r.Value(ProjectColumn)
		if table.Falsy(project) {
			continue
		}
		key := table.Format(project)
		i, ok := index[key]
		if !ok {
			i = len(aggs)
			index[key] = i
			aggs = append(aggs, AggregateRow{
				Service: r.Value(ServiceColumn),
				Project: project,
				Counts:  map[string]int{},
			})
		}
		label := classificationOf(r)
		if _, seen := aggs[i].Counts[label]; !seen {
			aggs[i].Labels = append(aggs[i].Labels, label)
		}
		aggs[i].Total++
		aggs[i].Counts[label]++
	}
	sort.SliceStable(aggs, func(i, j int) bool { return aggs[i].Total > aggs[j].Total })
	return aggs
}

func classificationOf(r *table.Row) string {
	for _, col := range []string{classifAccented, classifPlain} {
		if v := r.Value(col); !table.Falsy(v) {
			return table.Format(v)
		}
	}
	return Unclassified
}

// ClassificationLabels returns every label seen across aggs, known labels
// first in their fixed order, then the rest in Spanish collation order.
func ClassificationLabels(aggs []AggregateRow) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, a := range aggs {
		for _, l := range a.Labels {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				labels = append(labels, l)
			}
		}
	}
	SortClassifications(labels)
	return labels
}

// SortClassifications orders labels known-first, then alphabetically.
// Labels the collator treats as equal fall back to byte order.
func SortClassifications(labels []string) {
	coll := collate.New(language.Spanish)
	known := func(l string) int {
		for i, k := range KnownClassifications {
			if k == l {
				return i
			}
		}
		return -1
	}
	sort.SliceStable(labels, func(i, j int) bool {
		ki, kj := known(labels[i]), known(labels[j])
		switch {
		case ki >= 0 && kj >= 0:
			return ki < kj
		case ki >= 0:
			return true
		case kj >= 0:
			return false
		}
		if c := coll.CompareString(labels[i], labels[j]); c != 0 {
			return c < 0
		}
		return labels[i] < labels[j]
	})
}

func matchConstruction(in projectionInput) bool {
	return findColumn(in.columns, isBIP) != ""
}

// buildConstruction picks the executive columns of a works-tracking sheet.
// MinColumns is a tunable threshold, not a structural requirement.
func buildConstruction(in projectionInput) Projection {
	cols := compact(
		findColumn(in.columns, isBIP),
		findColumn(in.columns, func(upper, _ string) bool {
			return strings.Contains(upper, "NOMBRE") &&
				(strings.Contains(upper, "PROYECTO") || strings.Contains(upper, "OBRA"))
		}),
		findColumn(in.columns, func(upper, _ string) bool { return strings.Contains(upper, "MONITOR") }),
		findColumn(in.columns, isServiceHealth),
		findColumn(in.columns, func(upper, _ string) bool {
			return strings.Contains(upper, "AVANCE") && strings.Contains(upper, "FISICO")
		}),
		findColumn(in.columns, func(upper, _ string) bool {
			return strings.Contains(upper, "FECHA") &&
				(strings.Contains(upper, "TERMINO") || strings.Contains(upper, "TÉRMINO"))
		}),
	)
	minCols := in.opts.MinColumns
	if minCols <= 0 {
		minCols = config.ProjectionMinCol
	}
	if len(cols) < minCols {
		cols = in.columns
	}
	return Projection{Columns: cols, Rows: in.subset}
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
