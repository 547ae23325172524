package analysis

import (
	"sort"
	"strings"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/table"
)

// ChartEntry is one bar: a category label and its row count.
type ChartEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ChartSpec is a ranked frequency table for one categorical column.
type ChartSpec struct {
	Title string       `json:"title"`
	Key   string       `json:"key"`
	Data  []ChartEntry `json:"data"`
}

// ChartPriority orders charts by the first term contained in their
// lower-cased title. Charts matching no term keep their relative order after
// all matching ones.
var ChartPriority = []string{
	"servicio de salud",
	"clasificacion",
	"clasificación",
	"partida",
	"nombre del proyecto",
	"cartera",
	"macrozona",
	"monitor",
	"estado",
	"comuna",
	"situacion",
	"etapa",
}

// ChartTitle returns the display title for a charted column.
func ChartTitle(column string) string {
	switch column {
	case "Macrozona":
		return "Cartera"
	case "NOMBRE DEL PROYECTO":
		return "Registros por Proyecto"
	}
	return "Proyectos por " + column
}

// Charts counts category frequencies for each eligible categorical column of
// subset, skipping identifier-like columns and the active filter column.
func Charts(subset table.Dataset, categorical []string, filterColumn string) []ChartSpec {
	var specs []ChartSpec
	for _, col := range categorical {
		if IsIdentifier(col) || col == filterColumn {
			continue
		}
		entries := countValues(subset, col)
		if len(entries) <= config.ChartMinValues || len(entries) > config.ChartMaxValues {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
		if len(entries) > config.ChartMaxEntries {
			entries = entries[:config.ChartMaxEntries]
		}
		specs = append(specs, ChartSpec{Title: ChartTitle(col), Key: col, Data: entries})
	}
	sort.SliceStable(specs, func(i, j int) bool {
		return chartRank(specs[i].Title) < chartRank(specs[j].Title)
	})
	if len(specs) > config.ChartMaxSpecs {
		specs = specs[:config.ChartMaxSpecs]
	}
	return specs
}

// countValues tallies labels in first-seen order.
func countValues(ds table.Dataset, col string) []ChartEntry {
	index := make(map[string]int)
	var entries []ChartEntry
	for _, r := range ds {
		v := r.Value(col)
		label := config.EmptyValueLabel
		if !table.Falsy(v) {
			label = table.Format(v)
		}
		if i, ok := index[label]; ok {
			entries[i].Value++
			continue
		}
		index[label] = len(entries)
		entries = append(entries, ChartEntry{Name: label, Value: 1})
	}
	return entries
}

func chartRank(title string) int {
	low := strings.ToLower(title)
	for i, term := range ChartPriority {
		if strings.Contains(low, term) {
			return i
		}
	}
	return len(ChartPriority)
}
