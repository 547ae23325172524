// Package normalize turns raw spreadsheet rows into the canonical dataset:
// headers are canonicalized, string values cleaned and spelling variants
// folded, and spreadsheet serial dates rendered as DD/MM/YYYY with a derived
// year field.
package normalize

import "strings"

// HeaderRule maps any header containing every substring in Contains to Name.
// Matching is case-sensitive.
type HeaderRule struct {
	Contains []string
	Name     string
}

// Matches reports whether every required substring occurs in header.
func (r HeaderRule) Matches(header string) bool {
	for _, s := range r.Contains {
		if !strings.Contains(header, s) {
			return false
		}
	}
	return len(r.Contains) > 0
}

// HeaderRules is evaluated in order; the first match wins.
var HeaderRules = []HeaderRule{
	{Contains: []string{"AUMENTO", "CON IVA"}, Name: "Aumento (IVA)"},
	{Contains: []string{"DISMINUCIÓN", "CON IVA"}, Name: "Disminución (IVA)"},
	{Contains: []string{"OBRA EXTRAORDINARIA", "CON IVA"}, Name: "Obra Extra (IVA)"},
	{Contains: []string{"INDEMNIZACIÓN POR PLAZO", "CON IVA"}, Name: "Indemnización Plazo (IVA)"},
	{Contains: []string{"ORD", "INGRESO NC"}, Name: "Ord. Ingreso"},
	{Contains: []string{"C4 MINSAL", "RESPUESTA"}, Name: "C4 Minsal Respuesta"},
	{Contains: []string{"FECHA INGRESO"}, Name: "Fecha Ingreso"},
	{Contains: []string{"VALOR UF"}, Name: "Valor UF"},
}

// Header returns the canonical display name for a raw header. Unmatched
// headers are returned trimmed. Distinct raw headers may share a canonical
// name; the pipeline lets the later one win.
func Header(raw string) string {
	clean := strings.TrimSpace(raw)
	for _, r := range HeaderRules {
		if r.Matches(clean) {
			return r.Name
		}
	}
	return clean
}
