package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/analysis"
	"github.com/vinodismyname/sheetlens/internal/datasets"
	"github.com/vinodismyname/sheetlens/internal/runtime"
	"github.com/vinodismyname/sheetlens/internal/security"
	"github.com/vinodismyname/sheetlens/internal/sheets"
	"github.com/vinodismyname/sheetlens/internal/table"
	"github.com/vinodismyname/sheetlens/pkg/mcperr"
	"github.com/vinodismyname/sheetlens/pkg/pagination"
	"github.com/vinodismyname/sheetlens/pkg/validation"
)

// Deps are the collaborators the dataset tools operate on.
type Deps struct {
	Datasets  *datasets.Manager
	Profiles  config.Profiles
	Limits    runtime.Limits
	Validator datasets.PathValidator
}

// tools holds handler state; each exported tool maps to one method.
type tools struct {
	deps Deps
}

// RegisterDatasetTools defines the dataset tool schemas and wires their handlers.
func RegisterDatasetTools(s *server.MCPServer, reg *Registry, deps Deps) {
	if len(deps.Profiles) == 0 {
		deps.Profiles = config.DefaultProfiles()
	}
	if deps.Limits.PageSize <= 0 {
		deps.Limits.PageSize = config.DefaultPageSize
	}
	t := &tools{deps: deps}

	add := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		s.AddTool(tool, handler)
		reg.Register(tool)
	}

	add(mcp.NewTool(
		"open_dataset",
		mcp.WithDescription(fmt.Sprintf("Load an Excel (.xlsx) or CSV export into a normalized dataset. The sheet is the first of the profile's allowed sheet names present in the workbook, else the first sheet. Headers are canonicalized, status spellings folded and spreadsheet date serials rendered as DD/MM/YYYY with a derived Año column. Returns a dataset_id, the chosen sheet, columns and the filter facets. Pass dataset_id to replace an existing dataset; the filter is reset. Profiles: %s.", strings.Join(deps.Profiles.Names(), ", "))),
		mcp.WithInputSchema[OpenDatasetInput](),
		mcp.WithOutputSchema[DatasetSummary](),
	), mcp.NewTypedToolHandler(t.openDataset))

	add(mcp.NewTool(
		"inspect_sheet",
		mcp.WithDescription("Show the raw header row and the first two data rows of a sheet as positional arrays, plus the column count. Use before open_dataset to check a file's layout. Omit sheet for the first sheet."),
		mcp.WithInputSchema[InspectSheetInput](),
		mcp.WithOutputSchema[sheets.Preview](),
	), mcp.NewTypedToolHandler(t.inspectSheet))

	add(mcp.NewTool(
		"list_facets",
		mcp.WithDescription("List the filterable columns of a dataset with their distinct values, plus the active filter."),
		mcp.WithInputSchema[DatasetRef](),
		mcp.WithOutputSchema[FacetsOutput](),
	), mcp.NewTypedToolHandler(t.listFacets))

	add(mcp.NewTool(
		"set_filter",
		mcp.WithDescription("Set the single equality filter of a dataset. Choosing a different column clears the previous value; an empty column clears the filter. Values compare exactly, as shown by list_facets."),
		mcp.WithInputSchema[SetFilterInput](),
		mcp.WithOutputSchema[FilterOutput](),
	), mcp.NewTypedToolHandler(t.setFilter))

	add(mcp.NewTool(
		"analyze_dataset",
		mcp.WithDescription(fmt.Sprintf("Analyze the filtered rows of a dataset: numeric columns with totals, up to %d charts of category counts, and the table projection with its first page of %d rows and a cursor for read_table. Sets no_data when the filter matches nothing. type=data forces the identifier/project/service table.", config.ChartMaxSpecs, deps.Limits.PageSize)),
		mcp.WithInputSchema[AnalyzeInput](),
		mcp.WithOutputSchema[AnalyzeOutput](),
	), mcp.NewTypedToolHandler(t.analyzeDataset))

	add(mcp.NewTool(
		"read_table",
		mcp.WithDescription("Return one page of table projection rows. Supply dataset_id with a 1-based page, or the cursor from a previous call. Cursors expire when the dataset is reloaded or refiltered."),
		mcp.WithInputSchema[ReadTableInput](),
		mcp.WithOutputSchema[ReadTableOutput](),
	), mcp.NewTypedToolHandler(t.readTable))

	add(mcp.NewTool(
		"export_json",
		mcp.WithDescription("Export the filtered rows of a dataset as an indented JSON array, fields in header order."),
		mcp.WithInputSchema[DatasetRef](),
		mcp.WithOutputSchema[ExportOutput](),
	), mcp.NewTypedToolHandler(t.exportJSON))

	add(mcp.NewTool(
		"record_detail",
		mcp.WithDescription("Show one filtered row as a detail card grouped into sections (general, status, dates, financial, location). index is 0-based within the filtered rows. Unavailable for per-project summary tables."),
		mcp.WithInputSchema[RecordDetailInput](),
		mcp.WithOutputSchema[RecordDetailOutput](),
	), mcp.NewTypedToolHandler(t.recordDetail))

	add(mcp.NewTool(
		"close_dataset",
		mcp.WithDescription("Release a dataset and its capacity slot."),
		mcp.WithInputSchema[DatasetRef](),
		mcp.WithOutputSchema[CloseOutput](),
	), mcp.NewTypedToolHandler(t.closeDataset))
}

func (t *tools) openDataset(ctx context.Context, _ mcp.CallToolRequest, in OpenDatasetInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	profile, ok := t.deps.Profiles.Lookup(in.Profile)
	if !ok {
		return mcperr.Wrapf(mcperr.UnknownProfile, "profile %q not found; known: %s", in.Profile, strings.Join(t.deps.Profiles.Names(), ", ")), nil
	}
	allowed := profile.AllowedSheets
	if len(in.AllowedSheets) > 0 {
		allowed = in.AllowedSheets
	}

	v, err := t.deps.Datasets.Load(ctx, datasets.LoadRequest{
		Path:          in.Path,
		Profile:       profile.Name,
		Mode:          profile.Type,
		AllowedSheets: allowed,
		MaxRows:       t.deps.Limits.MaxRowsPerLoad,
		ReplaceID:     in.DatasetID,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", in.Path).Msg("open_dataset failed")
		return loadError(err), nil
	}

	out := summarize(v, profile)
	zerolog.Ctx(ctx).Info().
		Str("dataset_id", out.DatasetID).
		Str("profile", out.Profile).
		Str("sheet", out.Sheet).
		Int("rows", out.RowCount).
		Int("columns", len(out.Columns)).
		Msg("dataset opened")
	summary := fmt.Sprintf("dataset_id=%s sheet=%q rows=%d columns=%d facets=%d", out.DatasetID, out.Sheet, out.RowCount, len(out.Columns), len(out.Facets))
	if out.Truncated {
		summary += fmt.Sprintf(" truncated at %d rows", t.deps.Limits.MaxRowsPerLoad)
	}
	return mcp.NewToolResultStructured(out, summary), nil
}

func (t *tools) inspectSheet(ctx context.Context, _ mcp.CallToolRequest, in InspectSheetInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	path := in.Path
	if t.deps.Validator != nil {
		canonical, err := t.deps.Validator.ValidateOpenPath(path)
		if err != nil {
			return loadError(err), nil
		}
		path = canonical
	}
	p, err := sheets.Inspect(ctx, path, in.Sheet, 2)
	if err != nil {
		if errors.Is(err, sheets.ErrSheetNotFound) {
			return mcperr.Wrapf(mcperr.InvalidSheet, "sheet %q not found", in.Sheet), nil
		}
		if errors.Is(err, sheets.ErrUnsupportedFormat) || errors.Is(err, sheets.ErrNoSheets) {
			return loadError(err), nil
		}
		return mcperr.Wrapf(mcperr.InspectFailed, "%v", err), nil
	}
	summary := fmt.Sprintf("sheet=%q columns=%d sample_rows=%d sheets=%v", p.Sheet, p.ColumnCount, len(p.Rows), p.Sheets)
	return mcp.NewToolResultStructured(p, summary), nil
}

func (t *tools) listFacets(_ context.Context, _ mcp.CallToolRequest, in DatasetRef) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	v, ok := t.deps.Datasets.Get(in.DatasetID)
	if !ok {
		return mcperr.New(mcperr.InvalidHandle, ""), nil
	}
	out := FacetsOutput{DatasetID: v.ID, Facets: facetsOrEmpty(v.Facets), Filter: v.Filter}
	lines := []string{fmt.Sprintf("facets=%d", len(out.Facets))}
	for _, f := range out.Facets {
		lines = append(lines, fmt.Sprintf("- %s (%d values)", f.Column, len(f.Values)))
	}
	res := mcp.NewToolResultStructured(out, lines[0])
	res.Content = []mcp.Content{mcp.NewTextContent(strings.Join(lines, "\n"))}
	return res, nil
}

func (t *tools) setFilter(ctx context.Context, _ mcp.CallToolRequest, in SetFilterInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	v, err := t.deps.Datasets.SetFilter(in.DatasetID, in.Column, in.Value)
	switch {
	case errors.Is(err, datasets.ErrHandleNotFound):
		return mcperr.New(mcperr.InvalidHandle, ""), nil
	case errors.Is(err, datasets.ErrUnknownFacet):
		return mcperr.Wrapf(mcperr.InvalidFilter, "column %q is not a filterable facet", in.Column), nil
	case err != nil:
		return mcperr.Wrapf(mcperr.AnalysisFailed, "%v", err), nil
	}
	n := len(v.Subset())
	out := FilterOutput{DatasetID: v.ID, Filter: v.Filter, Active: v.Filter.Active(), RowCount: n, NoData: n == 0}
	zerolog.Ctx(ctx).Debug().Str("dataset_id", v.ID).Str("column", v.Filter.Column).Str("value", v.Filter.Value).Int("rows", n).Msg("filter updated")
	return mcp.NewToolResultStructured(out, fmt.Sprintf("filter column=%q value=%q rows=%d", v.Filter.Column, v.Filter.Value, n)), nil
}

func (t *tools) analyzeDataset(ctx context.Context, _ mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	v, ok := t.deps.Datasets.Get(in.DatasetID)
	if !ok {
		return mcperr.New(mcperr.InvalidHandle, ""), nil
	}
	opts := v.Options()
	if in.Type != "" {
		opts.Mode = in.Type
	}
	res := analysis.Analyze(v.Rows, opts)
	out := AnalyzeOutput{DatasetID: v.ID, Filter: v.Filter}
	if res == nil {
		out.NoData = true
		return mcp.NewToolResultStructured(out, "no_data: no rows match the current filter"), nil
	}
	out.RowCount = res.RowCount
	out.AllColumns = res.AllColumns
	out.NumericColumns = res.NumericColumns
	out.Totals = res.Totals
	out.Charts = res.Charts
	out.Table = TableInfo{Branch: res.Table.Branch, Columns: res.Table.Columns, Aggregated: res.Table.Aggregated()}
	out.Page = analysis.Paginate(res.Table.Rows, 1, t.deps.Limits.PageSize)
	next, err := t.nextCursor(v, opts.Mode, out.Page)
	if err != nil {
		return mcperr.Wrapf(mcperr.CursorBuildFailed, "%v", err), nil
	}
	out.NextCursor = next

	zerolog.Ctx(ctx).Debug().Str("dataset_id", v.ID).Int("rows", out.RowCount).Int("charts", len(out.Charts)).Str("branch", string(out.Table.Branch)).Msg("dataset analyzed")
	summary := fmt.Sprintf("rows=%d numeric=%d charts=%d table=%s pages=%d", out.RowCount, len(out.NumericColumns), len(out.Charts), out.Table.Branch, out.Page.TotalPages)
	return mcp.NewToolResultStructured(out, summary), nil
}

func (t *tools) readTable(_ context.Context, _ mcp.CallToolRequest, in ReadTableInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	id, page, mode := in.DatasetID, in.Page, in.Type
	var cur *pagination.Cursor
	if in.Cursor != "" {
		c, err := pagination.DecodeCursor(in.Cursor)
		if err != nil {
			return mcperr.Wrapf(mcperr.CursorInvalid, "%v", err), nil
		}
		cur = c
		id = c.Did
		page = pagination.PageForOffset(c.Off, c.Ps)
		mode = c.M
	}
	v, ok := t.deps.Datasets.Get(id)
	if !ok {
		return mcperr.New(mcperr.InvalidHandle, ""), nil
	}
	if cur != nil {
		if cur.Dv != v.Version || cur.Fh != pagination.FilterHash(v.Filter.Column, v.Filter.Value) {
			return mcperr.New(mcperr.CursorInvalid, "dataset was reloaded or refiltered since the cursor was issued"), nil
		}
	} else if mode == "" {
		mode = v.Mode
	}

	subset := v.Subset()
	if len(subset) == 0 {
		return mcperr.New(mcperr.NoData, ""), nil
	}
	proj := analysis.Project(subset, analysis.ProjectionOptions{Mode: mode})
	p := analysis.Paginate(proj.Rows, page, t.deps.Limits.PageSize)
	next, err := t.nextCursor(v, mode, p)
	if err != nil {
		return mcperr.Wrapf(mcperr.CursorBuildFailed, "%v", err), nil
	}
	out := ReadTableOutput{DatasetID: v.ID, Columns: proj.Columns, Branch: proj.Branch, Page: p, NextCursor: next}
	return mcp.NewToolResultStructured(out, fmt.Sprintf("page %d of %d (%d rows)", p.Number, p.TotalPages, p.Total)), nil
}

func (t *tools) nextCursor(v datasets.View, mode string, p analysis.Page) (string, error) {
	if p.Number >= p.TotalPages {
		return "", nil
	}
	return pagination.EncodeCursor(pagination.Cursor{
		Did: v.ID,
		Dv:  v.Version,
		Off: pagination.OffsetForPage(p.Number+1, p.Size),
		Ps:  p.Size,
		Fh:  pagination.FilterHash(v.Filter.Column, v.Filter.Value),
		M:   mode,
	})
}

func (t *tools) exportJSON(ctx context.Context, _ mcp.CallToolRequest, in DatasetRef) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	v, ok := t.deps.Datasets.Get(in.DatasetID)
	if !ok {
		return mcperr.New(mcperr.InvalidHandle, ""), nil
	}
	subset := v.Subset()
	b, err := analysis.ExportJSON(subset)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("dataset_id", v.ID).Msg("export failed")
		return mcperr.Wrapf(mcperr.ExportFailed, "%v", err), nil
	}
	if limit := t.deps.Limits.MaxPayloadBytes; limit > 0 && len(b) > limit {
		return mcperr.Wrapf(mcperr.PayloadTooLarge, "export is %d bytes (limit %d); apply a filter first", len(b), limit), nil
	}
	out := ExportOutput{DatasetID: v.ID, RowCount: len(subset), Bytes: len(b)}
	res := mcp.NewToolResultStructured(out, string(b))
	return res, nil
}

func (t *tools) recordDetail(_ context.Context, _ mcp.CallToolRequest, in RecordDetailInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	v, ok := t.deps.Datasets.Get(in.DatasetID)
	if !ok {
		return mcperr.New(mcperr.InvalidHandle, ""), nil
	}
	subset := v.Subset()
	if len(subset) == 0 {
		return mcperr.New(mcperr.NoData, ""), nil
	}
	if proj := analysis.Project(subset, analysis.ProjectionOptions{Mode: v.Mode}); proj.Aggregated() {
		return mcperr.New(mcperr.Validation, "the table shows per-project summaries; record detail is unavailable"), nil
	}
	if in.Index >= len(subset) {
		return mcperr.Wrapf(mcperr.RecordNotFound, "index %d out of range [0,%d)", in.Index, len(subset)), nil
	}
	row := subset[in.Index]
	out := RecordDetailOutput{DatasetID: v.ID, Index: in.Index, Record: row, Sections: analysis.Detail(row)}
	return mcp.NewToolResultStructured(out, detailText(out.Sections)), nil
}

func (t *tools) closeDataset(ctx context.Context, _ mcp.CallToolRequest, in DatasetRef) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	if err := t.deps.Datasets.CloseHandle(ctx, in.DatasetID); err != nil {
		if errors.Is(err, datasets.ErrHandleNotFound) {
			return mcperr.New(mcperr.InvalidHandle, ""), nil
		}
		return mcperr.Wrapf(mcperr.AnalysisFailed, "%v", err), nil
	}
	return mcp.NewToolResultStructured(CloseOutput{Success: true}, "closed"), nil
}

// loadError maps loader, security and capacity errors to tool errors.
func loadError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, security.ErrNotAllowed):
		return mcperr.New(mcperr.PermissionDenied, "path is outside the allowed directories")
	case errors.Is(err, security.ErrNotFound):
		return mcperr.New(mcperr.OpenFailed, "file not found")
	case errors.Is(err, security.ErrUnsupportedExtension),
		errors.Is(err, datasets.ErrUnsupportedFormat),
		errors.Is(err, sheets.ErrUnsupportedFormat):
		return mcperr.New(mcperr.UnsupportedFormat, "")
	case errors.Is(err, runtime.ErrDatasetCapacity), errors.Is(err, context.DeadlineExceeded):
		return mcperr.New(mcperr.BusyResource, "open dataset limit reached")
	case errors.Is(err, datasets.ErrHandleNotFound):
		return mcperr.New(mcperr.InvalidHandle, "")
	case errors.Is(err, sheets.ErrSheetNotFound), mcperr.IsInvalidSheet(err):
		return mcperr.Wrapf(mcperr.InvalidSheet, "%v", err)
	case errors.Is(err, sheets.ErrNoSheets):
		return mcperr.New(mcperr.OpenFailed, "workbook has no sheets")
	}
	return mcperr.Wrapf(mcperr.OpenFailed, "%v", err)
}

func summarize(v datasets.View, p config.Profile) DatasetSummary {
	return DatasetSummary{
		DatasetID: v.ID,
		Profile:   p.Name,
		Title:     p.Title,
		Mode:      v.Mode,
		Sheet:     v.Sheet,
		Sheets:    v.Sheets,
		RowCount:  len(v.Rows),
		Columns:   columnsOrEmpty(v.Rows),
		Facets:    facetsOrEmpty(v.Facets),
		Truncated: v.Truncated,
	}
}

func columnsOrEmpty(ds table.Dataset) []string {
	if cols := ds.Columns(); cols != nil {
		return cols
	}
	return []string{}
}

func facetsOrEmpty(f []analysis.Facet) []analysis.Facet {
	if f == nil {
		return []analysis.Facet{}
	}
	return f
}

func detailText(sections []analysis.Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Title)
		b.WriteString("\n")
		for _, f := range s.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Key, f.Value)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
