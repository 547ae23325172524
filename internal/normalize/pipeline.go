package normalize

import "github.com/vinodismyname/sheetlens/internal/table"

// Row produces the canonical form of a single raw row. The input row is not
// modified.
func Row(raw *table.Row) *table.Row {
	out := table.NewRow()
	yearSet := false
	raw.Each(func(key string, v any) bool {
		header := Header(key)
		val := Value(v)
		if resolved, year, ok := ResolveDate(header, val); ok {
			val = resolved
			if !yearSet {
				out.Set(YearField, year)
				yearSet = true
			}
		}
		if header == YearField && yearSet {
			return true
		}
		out.Set(header, val)
		return true
	})
	return out
}

// Dataset normalizes every row. Running it on its own output is a no-op.
func Dataset(raw table.Dataset) table.Dataset {
	if len(raw) == 0 {
		return table.Dataset{}
	}
	out := make(table.Dataset, len(raw))
	for i, r := range raw {
		out[i] = Row(r)
	}
	return out
}
