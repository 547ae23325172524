package analysis

import (
	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/table"
)

// Page is one slice of projection rows.
type Page struct {
	Number     int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Size       int          `json:"page_size"`
	Total      int          `json:"total"`
	Rows       []*table.Row `json:"rows"`
}

// Paginate returns page number (1-based, clamped) of rows.
func Paginate(rows []*table.Row, number, size int) Page {
	if size <= 0 {
		size = config.DefaultPageSize
	}
	total := len(rows)
	pages := (total + size - 1) / size
	if number > pages {
		number = pages
	}
	if number < 1 {
		number = 1
	}
	p := Page{Number: number, TotalPages: pages, Size: size, Total: total}
	start := (number - 1) * size
	if start >= total {
		p.Rows = []*table.Row{}
		return p
	}
	end := start + size
	if end > total {
		end = total
	}
	p.Rows = rows[start:end]
	return p
}
