package registry

import (
	"github.com/vinodismyname/sheetlens/internal/analysis"
	"github.com/vinodismyname/sheetlens/internal/table"
)

// --- Input / Output Schemas (typed for discovery) ---

// OpenDatasetInput defines parameters for loading a spreadsheet into a dataset.
type OpenDatasetInput struct {
	Path          string   `json:"path" validate:"required,filepath_ext" jsonschema_description:"Absolute or allowed path to an .xlsx or .csv file"`
	Profile       string   `json:"profile,omitempty" jsonschema_description:"Profile name selecting allowed sheets and table mode; defaults to the first profile"`
	AllowedSheets []string `json:"allowed_sheets,omitempty" validate:"omitempty,dive,sheet_name" jsonschema_description:"Overrides the profile's allowed sheet names, in preference order"`
	DatasetID     string   `json:"dataset_id,omitempty" validate:"omitempty,uuid" jsonschema_description:"Existing dataset to replace; its filter is reset"`
}

// DatasetSummary documents the response fields for open_dataset.
type DatasetSummary struct {
	DatasetID string           `json:"dataset_id" jsonschema_description:"Server-assigned dataset ID"`
	Profile   string           `json:"profile"`
	Title     string           `json:"title,omitempty"`
	Mode      string           `json:"mode,omitempty" jsonschema_description:"Table mode from the profile (data or empty)"`
	Sheet     string           `json:"sheet" jsonschema_description:"Sheet the rows were read from"`
	Sheets    []string         `json:"sheets" jsonschema_description:"All sheet names in the file"`
	RowCount  int              `json:"row_count"`
	Columns   []string         `json:"columns" jsonschema_description:"Columns of the first row, in header order"`
	Facets    []analysis.Facet `json:"facets" jsonschema_description:"Filterable columns with their distinct values"`
	Truncated bool             `json:"truncated" jsonschema_description:"True when the row cap was reached"`
}

// InspectSheetInput defines parameters for a raw header preview.
type InspectSheetInput struct {
	Path  string `json:"path" validate:"required,filepath_ext" jsonschema_description:"Absolute or allowed path to an .xlsx or .csv file"`
	Sheet string `json:"sheet,omitempty" validate:"omitempty,sheet_name" jsonschema_description:"Sheet to inspect; defaults to the first sheet"`
}

// DatasetRef addresses a loaded dataset.
type DatasetRef struct {
	DatasetID string `json:"dataset_id" validate:"required,uuid" jsonschema_description:"Dataset ID returned by open_dataset"`
}

// FacetsOutput documents list_facets.
type FacetsOutput struct {
	DatasetID string           `json:"dataset_id"`
	Facets    []analysis.Facet `json:"facets"`
	Filter    analysis.Filter  `json:"filter"`
}

// SetFilterInput defines parameters for set_filter.
type SetFilterInput struct {
	DatasetID string `json:"dataset_id" validate:"required,uuid" jsonschema_description:"Dataset ID returned by open_dataset"`
	Column    string `json:"column" jsonschema_description:"Facet column to filter on; empty clears the filter"`
	Value     string `json:"value,omitempty" jsonschema_description:"Exact value to keep; empty leaves the column selected without filtering"`
}

// FilterOutput documents the filter state after set_filter.
type FilterOutput struct {
	DatasetID string          `json:"dataset_id"`
	Filter    analysis.Filter `json:"filter"`
	Active    bool            `json:"active"`
	RowCount  int             `json:"row_count" jsonschema_description:"Rows in the filtered subset"`
	NoData    bool            `json:"no_data"`
}

// AnalyzeInput defines parameters for analyze_dataset.
type AnalyzeInput struct {
	DatasetID string `json:"dataset_id" validate:"required,uuid" jsonschema_description:"Dataset ID returned by open_dataset"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=data" jsonschema_description:"Overrides the profile's table mode; data forces the identifier/project/service view"`
}

// TableInfo describes the selected table projection.
type TableInfo struct {
	Branch     analysis.Branch `json:"branch" jsonschema_description:"Projection heuristic: data, hospital, construction or default"`
	Columns    []string        `json:"columns"`
	Aggregated bool            `json:"aggregated" jsonschema_description:"True when rows are per-project summaries"`
}

// AnalyzeOutput documents analyze_dataset.
type AnalyzeOutput struct {
	DatasetID      string               `json:"dataset_id"`
	Filter         analysis.Filter      `json:"filter"`
	NoData         bool                 `json:"no_data" jsonschema_description:"True when the filter matches no rows; other fields are empty"`
	RowCount       int                  `json:"row_count"`
	AllColumns     []string             `json:"all_columns,omitempty"`
	NumericColumns []string             `json:"numeric_columns,omitempty"`
	Totals         []analysis.Total     `json:"totals,omitempty"`
	Charts         []analysis.ChartSpec `json:"charts,omitempty"`
	Table          TableInfo            `json:"table"`
	Page           analysis.Page        `json:"page"`
	NextCursor     string               `json:"next_cursor,omitempty"`
}

// ReadTableInput defines parameters for read_table. Cursor takes precedence.
type ReadTableInput struct {
	DatasetID string `json:"dataset_id,omitempty" validate:"required_without=Cursor,omitempty,uuid" jsonschema_description:"Dataset ID returned by open_dataset"`
	Page      int    `json:"page,omitempty" validate:"omitempty,min=1" jsonschema_description:"1-based page; clamped to the last page"`
	Cursor    string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"next_cursor from analyze_dataset or read_table"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=data" jsonschema_description:"Overrides the profile's table mode when no cursor is given"`
}

// ReadTableOutput documents read_table.
type ReadTableOutput struct {
	DatasetID  string          `json:"dataset_id"`
	Branch     analysis.Branch `json:"branch"`
	Columns    []string        `json:"columns"`
	Page       analysis.Page   `json:"page"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ExportOutput documents export_json; the JSON itself is the text content.
type ExportOutput struct {
	DatasetID string `json:"dataset_id"`
	RowCount  int    `json:"row_count"`
	Bytes     int    `json:"bytes"`
}

// RecordDetailInput defines parameters for record_detail.
type RecordDetailInput struct {
	DatasetID string `json:"dataset_id" validate:"required,uuid" jsonschema_description:"Dataset ID returned by open_dataset"`
	Index     int    `json:"index" validate:"min=0" jsonschema_description:"0-based position within the filtered rows"`
}

// RecordDetailOutput documents record_detail.
type RecordDetailOutput struct {
	DatasetID string             `json:"dataset_id"`
	Index     int                `json:"index"`
	Record    *table.Row         `json:"record"`
	Sections  []analysis.Section `json:"sections"`
}

// CloseOutput documents close_dataset.
type CloseOutput struct {
	Success bool `json:"success" jsonschema_description:"True when the dataset was released"`
}
