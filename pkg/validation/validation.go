package validation

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vinodismyname/sheetlens/pkg/pagination"
)

var (
	v    *validator.Validate
	once sync.Once

	spreadsheetExts = map[string]struct{}{
		".xlsx": {}, ".xlsm": {}, ".xltx": {}, ".xltm": {}, ".csv": {},
	}
)

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Custom: spreadsheet path must have a supported extension
		_ = v.RegisterValidation("filepath_ext", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			_, ok := spreadsheetExts[strings.ToLower(filepath.Ext(s))]
			return ok
		})
		// Custom: cursor must be decodable via pagination.DecodeCursor
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty is allowed; use omitempty with this tag
			}
			// Quick URL-safe base64 precheck
			if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
				return false
			}
			if _, err := pagination.DecodeCursor(s); err != nil {
				return false
			}
			return true
		})
		// Custom: sheet names follow the workbook limits (31 chars, no []:*?/\)
		_ = v.RegisterValidation("sheet_name", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" || len([]rune(s)) > 31 {
				return false
			}
			return !strings.ContainsAny(s, `[]:*?/\`)
		})
	})
	return v
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "required_without":
				return fmt.Sprintf("VALIDATION: %s is required (or supply %s)", field, strings.ToLower(fe.Param()))
			case "filepath_ext":
				return "VALIDATION: path must be a spreadsheet file (.xlsx, .xlsm, .xltx, .xltm, .csv)"
			case "cursor":
				return "CURSOR_INVALID: failed to decode cursor; restart paging from page 1"
			case "sheet_name":
				return "VALIDATION: invalid sheet name"
			case "uuid", "uuid4":
				return fmt.Sprintf("VALIDATION: %s must be a dataset id returned by open_dataset", field)
			case "oneof":
				return fmt.Sprintf("VALIDATION: %s must be one of [%s]", field, fe.Param())
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			// Fallback generic
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
