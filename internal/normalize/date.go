package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vinodismyname/sheetlens/internal/table"
)

// YearField is the synthesized year column added next to resolved dates.
const YearField = "Año"

const (
	// unixEpochSerial is the 1900-system serial of 1970-01-01. The 1900
	// leap-year bug is not corrected.
	unixEpochSerial = 25569
	// maxEpochDays bounds the representable calendar range (±100,000,000 days).
	maxEpochDays = 1e8
)

// SerialToTime converts a spreadsheet serial day number to a UTC midnight.
// Fractional days are floored. Zero, NaN and out-of-range serials fail.
func SerialToTime(serial float64) (time.Time, bool) {
	if serial == 0 || math.IsNaN(serial) {
		return time.Time{}, false
	}
	days := math.Floor(serial - unixEpochSerial)
	if math.IsInf(days, 0) || math.Abs(days) > maxEpochDays {
		return time.Time{}, false
	}
	return time.Unix(int64(days)*86400, 0).UTC(), true
}

// FormatDate renders t as DD/MM/YYYY from its calendar fields.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d/%02d/%d", t.Day(), int(t.Month()), t.Year())
}

// IsDateHeader reports whether a canonical header names a date column.
func IsDateHeader(header string) bool {
	return strings.Contains(strings.ToLower(header), "fecha")
}

// ResolveDate converts numeric values under date headers. It returns the
// display value, the derived year and whether conversion happened. On
// failure the original value is returned unchanged.
func ResolveDate(header string, v any) (any, string, bool) {
	if !IsDateHeader(header) {
		return v, "", false
	}
	serial, ok := table.Number(v)
	if !ok {
		return v, "", false
	}
	t, ok := SerialToTime(serial)
	if !ok {
		return v, "", false
	}
	return FormatDate(t), strconv.Itoa(t.Year()), true
}
