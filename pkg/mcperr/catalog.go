package mcperr

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & Input
	Validation        Code = "VALIDATION"
	InvalidHandle     Code = "INVALID_HANDLE"
	InvalidSheet      Code = "INVALID_SHEET"
	InvalidFilter     Code = "INVALID_FILTER"
	UnknownProfile    Code = "UNKNOWN_PROFILE"
	CursorInvalid     Code = "CURSOR_INVALID"
	CursorBuildFailed Code = "CURSOR_BUILD_FAILED"

	// Resource & Limits
	BusyResource    Code = "BUSY_RESOURCE"
	Timeout         Code = "TIMEOUT"
	PayloadTooLarge Code = "PAYLOAD_TOO_LARGE"

	// IO & Formats
	OpenFailed    Code = "OPEN_FAILED"
	InspectFailed Code = "INSPECT_FAILED"
	ExportFailed  Code = "EXPORT_FAILED"

	// Analysis
	NoData         Code = "NO_DATA"
	AnalysisFailed Code = "ANALYSIS_FAILED"
	RecordNotFound Code = "RECORD_NOT_FOUND"

	// Integrity
	UnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	PermissionDenied  Code = "PERMISSION_DENIED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:        {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry", "See examples in tool description"}},
	InvalidHandle:     {Code: InvalidHandle, Message: "dataset not found or expired", Retryable: true, NextSteps: []string{"Reload the file with open_dataset and retry"}},
	InvalidSheet:      {Code: InvalidSheet, Message: "sheet not found", Retryable: true, NextSteps: []string{"Call inspect_sheet without a sheet to list sheet names", "Check case and spacing"}},
	InvalidFilter:     {Code: InvalidFilter, Message: "column is not a filterable facet", Retryable: true, NextSteps: []string{"Call list_facets to see filterable columns"}},
	UnknownProfile:    {Code: UnknownProfile, Message: "profile not found", Retryable: true, NextSteps: []string{"Omit profile to use the default", "Check the configured profile names"}},
	CursorInvalid:     {Code: CursorInvalid, Message: "cursor is invalid for current context", Retryable: true, NextSteps: []string{"Restart paging from the first page", "Avoid reloading or refiltering between pages"}},
	CursorBuildFailed: {Code: CursorBuildFailed, Message: "failed to encode next page cursor", Retryable: true, NextSteps: []string{"Retry with an explicit page number"}},

	BusyResource:    {Code: BusyResource, Message: "resource limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay", "Close unused datasets with close_dataset"}},
	Timeout:         {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Use a smaller file or narrow the filter"}},
	PayloadTooLarge: {Code: PayloadTooLarge, Message: "payload exceeds configured size", Retryable: true, NextSteps: []string{"Apply a filter before exporting", "Use read_table to page through rows"}},

	OpenFailed:    {Code: OpenFailed, Message: "failed to open file", Retryable: true, NextSteps: []string{"Verify path, permissions, and format"}},
	InspectFailed: {Code: InspectFailed, Message: "failed to inspect sheet", Retryable: true, NextSteps: []string{"Verify the sheet name and retry"}},
	ExportFailed:  {Code: ExportFailed, Message: "failed to export rows", Retryable: true, NextSteps: []string{"Retry or narrow the filter"}},

	NoData:         {Code: NoData, Message: "no rows match the current filter", Retryable: true, NextSteps: []string{"Clear or change the filter with set_filter"}},
	AnalysisFailed: {Code: AnalysisFailed, Message: "analysis failed", Retryable: true, NextSteps: []string{"Reload the dataset and retry"}},
	RecordNotFound: {Code: RecordNotFound, Message: "record index out of range", Retryable: true, NextSteps: []string{"Use an index from the current filtered row set"}},

	UnsupportedFormat: {Code: UnsupportedFormat, Message: "unsupported file format", Retryable: false, NextSteps: []string{"Convert to .xlsx or .csv and retry"}},
	PermissionDenied:  {Code: PermissionDenied, Message: "insufficient permissions to access path", Retryable: false, NextSteps: []string{"Adjust permissions or choose an allowed directory"}},
}

// Lookup returns the catalog entry for a code.
func Lookup(code Code) (Entry, bool) {
	e, ok := catalog[code]
	return e, ok
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		// Unknown code; preserve as-is
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	// Append compact nextSteps guidance inline to aid clients lacking structured fields.
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	if len(parts) == 0 {
		return mcp.NewToolResultError(normalize(Validation, t))
	}
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// Helpers for common mappings

// IsInvalidSheet returns true if an error matches common "sheet does not exist" messages.
func IsInvalidSheet(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "doesn't exist") || strings.Contains(low, "does not exist")
}
