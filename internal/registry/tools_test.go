package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/sheetlens/config"
	"github.com/vinodismyname/sheetlens/internal/analysis"
	"github.com/vinodismyname/sheetlens/internal/datasets"
	"github.com/vinodismyname/sheetlens/internal/runtime"
	"github.com/vinodismyname/sheetlens/internal/sheets"
)

var req = mcp.CallToolRequest{}

func newTestTools(t *testing.T) *tools {
	t.Helper()
	m := datasets.NewManager(time.Minute, time.Minute, nil, time.Now)
	return &tools{deps: Deps{Datasets: m, Profiles: config.DefaultProfiles(), Limits: runtime.NewLimits(2, 2)}}
}

// writeObras builds a works-tracking workbook with 12 projects.
func writeObras(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	_, err := f.NewSheet("DMO-Obras")
	require.NoError(t, err)
	header := []any{"BIP", "Nombre Proyecto", "Monitor", "Estado", "Comuna", "Fecha Término", "Monto"}
	require.NoError(t, f.SetSheetRow("DMO-Obras", "A1", &header))
	for i := 0; i < 12; i++ {
		estado := "En Ejecucion"
		if i%3 == 0 {
			estado = "terminado"
		}
		monitor, comuna := "Ana", "Talca"
		if i%2 == 1 {
			monitor, comuna = "Luis", "Curicó"
		}
		row := []any{30000 + i, fmt.Sprintf("Proyecto %02d", i), monitor, estado, comuna, 44927 + i, 1000 * (i + 1)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("DMO-Obras", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "obras.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeHospitalCSV(t *testing.T) string {
	t.Helper()
	content := strings.Join([]string{
		"SERVICIO DE SALUD,NOMBRE DEL PROYECTO,Clasificación,FECHA INGRESO NC",
		"SS Maule,Hospital Talca,Funcionalidad,44927",
		"SS Maule,Hospital Talca,Normativa,44930",
		"SS Maule,Hospital Linares,,44931",
	}, "\n")
	path := filepath.Join(t.TempDir(), "notas.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func requireCode(t *testing.T, res *mcp.CallToolResult, code string) {
	t.Helper()
	require.True(t, res.IsError, "expected error result, got %q", text(t, res))
	require.True(t, strings.HasPrefix(text(t, res), code+":"), "got %q", text(t, res))
}

func open(t *testing.T, tt *tools, in OpenDatasetInput) DatasetSummary {
	t.Helper()
	res, err := tt.openDataset(context.Background(), req, in)
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	out, ok := res.StructuredContent.(DatasetSummary)
	require.True(t, ok)
	return out
}

func TestRegisterDatasetTools(t *testing.T) {
	s := server.NewMCPServer("test", "0.0.0")
	reg := New()
	RegisterDatasetTools(s, reg, Deps{Datasets: datasets.NewManager(0, 0, nil, nil)})
	require.Equal(t, []string{
		"analyze_dataset", "close_dataset", "export_json", "inspect_sheet", "list_facets",
		"open_dataset", "read_table", "record_detail", "set_filter",
	}, reg.Names())

	tool, ok := reg.Get("open_dataset")
	require.True(t, ok)
	require.Contains(t, tool.Description, "obras, nuevo")
	require.NotEmpty(t, tool.RawInputSchema)
}

func TestOpenDataset(t *testing.T) {
	tt := newTestTools(t)
	out := open(t, tt, OpenDatasetInput{Path: writeObras(t)})

	require.Equal(t, "obras", out.Profile)
	require.Equal(t, "DMO-Obras", out.Sheet)
	require.Equal(t, []string{"Sheet1", "DMO-Obras"}, out.Sheets)
	require.Equal(t, 12, out.RowCount)
	require.Equal(t, []string{"BIP", "Nombre Proyecto", "Monitor", "Estado", "Comuna", "Año", "Fecha Término", "Monto"}, out.Columns)

	var cols []string
	for _, f := range out.Facets {
		cols = append(cols, f.Column)
	}
	require.Equal(t, []string{"Nombre Proyecto", "Monitor", "Estado", "Comuna", "Fecha Término"}, cols)
	estado, ok := analysis.FacetFor(out.Facets, "Estado")
	require.True(t, ok)
	require.Equal(t, []any{"En Ejecución", "Terminado"}, estado.Values)
}

func TestOpenDataset_Errors(t *testing.T) {
	tt := newTestTools(t)
	ctx := context.Background()

	res, err := tt.openDataset(ctx, req, OpenDatasetInput{Path: "/tmp/notes.txt"})
	require.NoError(t, err)
	requireCode(t, res, "VALIDATION")

	res, err = tt.openDataset(ctx, req, OpenDatasetInput{Path: writeObras(t), Profile: "nope"})
	require.NoError(t, err)
	requireCode(t, res, "UNKNOWN_PROFILE")

	res, err = tt.openDataset(ctx, req, OpenDatasetInput{Path: filepath.Join(t.TempDir(), "missing.xlsx")})
	require.NoError(t, err)
	requireCode(t, res, "OPEN_FAILED")

	res, err = tt.openDataset(ctx, req, OpenDatasetInput{Path: writeObras(t), DatasetID: "5f0c7a0e-3c1e-4f2a-9c43-2b0e9d1c7a11"})
	require.NoError(t, err)
	requireCode(t, res, "INVALID_HANDLE")
}

func TestAnalyzeAndPaging(t *testing.T) {
	tt := newTestTools(t)
	ctx := context.Background()
	ds := open(t, tt, OpenDatasetInput{Path: writeObras(t)})

	res, err := tt.analyzeDataset(ctx, req, AnalyzeInput{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	out := res.StructuredContent.(AnalyzeOutput)
	require.False(t, out.NoData)
	require.Equal(t, 12, out.RowCount)
	require.Contains(t, out.NumericColumns, "Monto")
	require.Contains(t, out.Totals, analysis.Total{Column: "Monto", Sum: 78000})
	require.Equal(t, analysis.BranchConstruction, out.Table.Branch)
	require.Equal(t, []string{"BIP", "Nombre Proyecto", "Monitor", "Fecha Término"}, out.Table.Columns)
	require.Equal(t, 2, out.Page.TotalPages)
	require.Len(t, out.Page.Rows, 10)
	require.NotEmpty(t, out.NextCursor)

	res, err = tt.readTable(ctx, req, ReadTableInput{Cursor: out.NextCursor})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	page := res.StructuredContent.(ReadTableOutput)
	require.Equal(t, 2, page.Page.Number)
	require.Len(t, page.Page.Rows, 2)
	require.Empty(t, page.NextCursor)
	require.Equal(t, "Proyecto 10", page.Page.Rows[0].Value("Nombre Proyecto"))

	res, err = tt.readTable(ctx, req, ReadTableInput{DatasetID: ds.DatasetID, Page: 9})
	require.NoError(t, err)
	page = res.StructuredContent.(ReadTableOutput)
	require.Equal(t, 2, page.Page.Number)

	// refiltering invalidates outstanding cursors
	_, err = tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Estado", Value: "Terminado"})
	require.NoError(t, err)
	res, err = tt.readTable(ctx, req, ReadTableInput{Cursor: out.NextCursor})
	require.NoError(t, err)
	requireCode(t, res, "CURSOR_INVALID")

	res, err = tt.analyzeDataset(ctx, req, AnalyzeInput{DatasetID: ds.DatasetID, Type: "data"})
	require.NoError(t, err)
	out = res.StructuredContent.(AnalyzeOutput)
	require.Equal(t, 4, out.RowCount)
	require.Equal(t, analysis.BranchData, out.Table.Branch)
	require.Equal(t, []string{"BIP", "Nombre Proyecto"}, out.Table.Columns)
	require.Empty(t, out.NextCursor)
	for _, c := range out.Charts {
		require.NotEqual(t, "Estado", c.Key)
	}
}

func TestSetFilterAndNoData(t *testing.T) {
	tt := newTestTools(t)
	ctx := context.Background()
	ds := open(t, tt, OpenDatasetInput{Path: writeObras(t)})

	res, err := tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Estado", Value: "Terminado"})
	require.NoError(t, err)
	f := res.StructuredContent.(FilterOutput)
	require.True(t, f.Active)
	require.Equal(t, 4, f.RowCount)

	res, err = tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Comuna"})
	require.NoError(t, err)
	f = res.StructuredContent.(FilterOutput)
	require.False(t, f.Active)
	require.Equal(t, "Comuna", f.Filter.Column)
	require.Equal(t, 12, f.RowCount)

	res, err = tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Comuna", Value: "Valdivia"})
	require.NoError(t, err)
	f = res.StructuredContent.(FilterOutput)
	require.True(t, f.NoData)

	res, err = tt.analyzeDataset(ctx, req, AnalyzeInput{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.True(t, res.StructuredContent.(AnalyzeOutput).NoData)

	res, err = tt.readTable(ctx, req, ReadTableInput{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	requireCode(t, res, "NO_DATA")

	res, err = tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Monto", Value: "1000"})
	require.NoError(t, err)
	requireCode(t, res, "INVALID_FILTER")

	res, err = tt.listFacets(ctx, req, DatasetRef{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	facets := res.StructuredContent.(FacetsOutput)
	require.Equal(t, analysis.Filter{Column: "Comuna", Value: "Valdivia"}, facets.Filter)
	require.Contains(t, text(t, res), "- Estado (2 values)")
}

func TestExportAndDetail(t *testing.T) {
	tt := newTestTools(t)
	ctx := context.Background()
	ds := open(t, tt, OpenDatasetInput{Path: writeObras(t)})
	_, err := tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Estado", Value: "Terminado"})
	require.NoError(t, err)

	res, err := tt.exportJSON(ctx, req, DatasetRef{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	require.False(t, res.IsError)
	exp := res.StructuredContent.(ExportOutput)
	require.Equal(t, 4, exp.RowCount)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rows))
	require.Len(t, rows, 4)
	require.Equal(t, "Terminado", rows[0]["Estado"])
	require.Equal(t, "01/01/2023", rows[0]["Fecha Término"])

	tt.deps.Limits.MaxPayloadBytes = 10
	res, err = tt.exportJSON(ctx, req, DatasetRef{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	requireCode(t, res, "PAYLOAD_TOO_LARGE")

	res, err = tt.recordDetail(ctx, req, RecordDetailInput{DatasetID: ds.DatasetID, Index: 1})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	det := res.StructuredContent.(RecordDetailOutput)
	require.Equal(t, "Proyecto 03", det.Record.Value("Nombre Proyecto"))
	var names []string
	for _, s := range det.Sections {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "status")
	require.Contains(t, names, "dates")
	require.Contains(t, text(t, res), "Estado: Terminado")

	res, err = tt.recordDetail(ctx, req, RecordDetailInput{DatasetID: ds.DatasetID, Index: 4})
	require.NoError(t, err)
	requireCode(t, res, "RECORD_NOT_FOUND")
}

func TestHospitalProfileAndReplace(t *testing.T) {
	tt := newTestTools(t)
	ctx := context.Background()
	ds := open(t, tt, OpenDatasetInput{Path: writeObras(t)})
	_, err := tt.setFilter(ctx, req, SetFilterInput{DatasetID: ds.DatasetID, Column: "Estado", Value: "Terminado"})
	require.NoError(t, err)

	replaced := open(t, tt, OpenDatasetInput{Path: writeHospitalCSV(t), Profile: "nuevo", DatasetID: ds.DatasetID})
	require.Equal(t, ds.DatasetID, replaced.DatasetID)
	require.Equal(t, sheets.CSVSheetName, replaced.Sheet)
	require.Equal(t, 3, replaced.RowCount)
	require.Contains(t, replaced.Columns, "Fecha Ingreso")

	res, err := tt.analyzeDataset(ctx, req, AnalyzeInput{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	out := res.StructuredContent.(AnalyzeOutput)
	require.Empty(t, out.Filter.Column)
	require.True(t, out.Table.Aggregated)
	require.Equal(t, []string{"SERVICIO DE SALUD", "NOMBRE DEL PROYECTO", "Total Registros", "Funcionalidad", "Normativa", "Sin Clasificar"}, out.Table.Columns)
	require.Len(t, out.Page.Rows, 2)
	require.Equal(t, "Hospital Talca", out.Page.Rows[0].Value("NOMBRE DEL PROYECTO"))
	require.Equal(t, float64(2), out.Page.Rows[0].Value("Total Registros"))

	res, err = tt.recordDetail(ctx, req, RecordDetailInput{DatasetID: ds.DatasetID, Index: 0})
	require.NoError(t, err)
	requireCode(t, res, "VALIDATION")
}

func TestInspectAndClose(t *testing.T) {
	tt := newTestTools(t)
	ctx := context.Background()
	path := writeObras(t)

	res, err := tt.inspectSheet(ctx, req, InspectSheetInput{Path: path, Sheet: "DMO-Obras"})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	p := res.StructuredContent.(sheets.Preview)
	require.Equal(t, 7, p.ColumnCount)
	require.Len(t, p.Rows, 2)
	require.Equal(t, "BIP", p.Headers[0])

	res, err = tt.inspectSheet(ctx, req, InspectSheetInput{Path: path, Sheet: "Otra"})
	require.NoError(t, err)
	requireCode(t, res, "INVALID_SHEET")

	ds := open(t, tt, OpenDatasetInput{Path: path})
	res, err = tt.closeDataset(ctx, req, DatasetRef{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	require.True(t, res.StructuredContent.(CloseOutput).Success)

	res, err = tt.listFacets(ctx, req, DatasetRef{DatasetID: ds.DatasetID})
	require.NoError(t, err)
	requireCode(t, res, "INVALID_HANDLE")

	res, err = tt.closeDataset(ctx, req, DatasetRef{DatasetID: "not-a-uuid"})
	require.NoError(t, err)
	requireCode(t, res, "VALIDATION")
}
