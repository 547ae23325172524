package analysis

import (
	"strings"

	"github.com/vinodismyname/sheetlens/internal/table"
)

// Field is one labelled value on a detail card.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section groups detail fields under a heading.
type Section struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

const financialThreshold = 10000

var (
	dateKeywords      = []string{"fecha", "plazo", "inicio", "termino"}
	financialKeywords = []string{"monto", "inversion", "costo"}
	locationKeywords  = []string{"ubicacion", "comuna", "direccion", "region"}
	statusKeywords    = []string{"estado", "avance", "situacion"}
)

// detailSections is listed in display order.
var detailSections = []struct{ name, title string }{
	{"general", "Información General"},
	{"status", "Estado y Avance"},
	{"dates", "Fechas y Plazos"},
	{"financial", "Financiero"},
	{"location", "Ubicación"},
}

// categorize checks dates, financial, location and status in that order;
// anything else is general. Large numbers count as financial.
func categorize(key string, v any) string {
	low := strings.ToLower(key)
	if containsAny(low, dateKeywords) {
		return "dates"
	}
	if containsAny(low, financialKeywords) {
		return "financial"
	}
	if f, ok := table.Number(v); ok && f > financialThreshold {
		return "financial"
	}
	if containsAny(low, locationKeywords) {
		return "location"
	}
	if containsAny(low, statusKeywords) {
		return "status"
	}
	return "general"
}

// Detail groups the non-absent fields of a raw row into display sections.
// Empty sections are omitted.
func Detail(r *table.Row) []Section {
	buckets := make(map[string][]Field)
	r.Each(func(key string, v any) bool {
		if v == nil {
			return true
		}
		name := categorize(key, v)
		buckets[name] = append(buckets[name], Field{Key: key, Value: table.Format(v)})
		return true
	})
	var out []Section
	for _, def := range detailSections {
		if fields := buckets[def.name]; len(fields) > 0 {
			out = append(out, Section{Name: def.name, Title: def.title, Fields: fields})
		}
	}
	return out
}
