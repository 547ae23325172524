package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StatusVariants folds lower-cased spelling variants of status labels into
// their canonical form.
var StatusVariants = map[string]string{
	"en ejecucion": "En Ejecución",
	"en ejecución": "En Ejecución",
	"ejecucion":    "En Ejecución",
	"ejecución":    "En Ejecución",

	"terminado":    "Terminado",
	"finalizado":   "Terminado",
	"completo":     "Terminado",
	"recepcionado": "Terminado",

	"en diseño": "En Diseño",
	"en diseno": "En Diseño",
	"diseno":    "En Diseño",
	"diseño":    "En Diseño",
}

// Spaces trims s and collapses every whitespace run to a single space.
func Spaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Value cleans string values and substitutes a canonical label when the
// lower-cased cleaned value is a known variant. Other values pass through.
func Value(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = Spaces(s)
	// Lookup uses NFC so decomposed accents (common in files saved on macOS)
	// still hit the dictionary.
	if canon, ok := StatusVariants[norm.NFC.String(strings.ToLower(s))]; ok {
		return canon
	}
	return s
}
