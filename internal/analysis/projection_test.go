package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/sheetlens/internal/table"
)

func TestProject_HospitalAggregation(t *testing.T) {
	ds := table.Dataset{
		table.RowOf(ServiceColumn, "S1", ProjectColumn, "P1", "Clasificación", "Normativa"),
		table.RowOf(ServiceColumn, "S2", ProjectColumn, "P2"),
		table.RowOf(ServiceColumn, "S1", ProjectColumn, "P1", "Clasificación", "Funcionalidad"),
		table.RowOf(ServiceColumn, "S9", ProjectColumn, ""),
		table.RowOf(ServiceColumn, "S1", ProjectColumn, "P1", "Clasificacion", "Normativa"),
	}
	p := Project(ds, ProjectionOptions{})
	require.Equal(t, BranchHospital, p.Branch)
	require.True(t, p.Aggregated())
	require.Equal(t, []string{ServiceColumn, ProjectColumn, TotalColumn, "Funcionalidad", "Normativa", "Sin Clasificar"}, p.Columns)

	require.Len(t, p.Aggregates, 2)
	p1 := p.Aggregates[0]
	require.Equal(t, "P1", p1.Project)
	require.Equal(t, "S1", p1.Service)
	require.Equal(t, 3, p1.Total)
	require.Equal(t, map[string]int{"Normativa": 2, "Funcionalidad": 1}, p1.Counts)
	require.Equal(t, map[string]int{"Sin Clasificar": 1}, p.Aggregates[1].Counts)

	require.Len(t, p.Rows, 2)
	row := p.Rows[0]
	require.Equal(t, []string{ServiceColumn, ProjectColumn, TotalColumn, "Funcionalidad", "Normativa"}, row.Keys())
	require.Equal(t, 3.0, row.Value(TotalColumn))
	require.Equal(t, 2.0, row.Value("Normativa"))
}

func TestProject_HospitalExampleColumns(t *testing.T) {
	ds := table.Dataset{
		table.RowOf(ProjectColumn, "P1", ServiceColumn, "S1", "Clasificación", "Normativa"),
		table.RowOf(ProjectColumn, "P1", ServiceColumn, "S1", "Clasificación", "Funcionalidad"),
	}
	p := Project(ds, ProjectionOptions{})
	require.Equal(t, []string{ServiceColumn, ProjectColumn, TotalColumn, "Funcionalidad", "Normativa"}, p.Columns)
	require.Equal(t, 2, p.Aggregates[0].Total)
	require.Equal(t, 1, p.Aggregates[0].Counts["Normativa"])
	require.Equal(t, 1, p.Aggregates[0].Counts["Funcionalidad"])
}

func TestSortClassifications(t *testing.T) {
	labels := []string{"Zeta", "Normativa", "Ítem", "AS/NTB", "Arquitectura", "Errores de Diseño"}
	SortClassifications(labels)
	require.Equal(t, []string{"Errores de Diseño", "AS/NTB", "Normativa", "Arquitectura", "Ítem", "Zeta"}, labels)
}

func TestProject_DataModeWins(t *testing.T) {
	ds := table.Dataset{table.RowOf(
		ServiceColumn, "S1",
		ProjectColumn, "P1",
		"Comuna", "Temuco",
		"Código BIP", "30-1",
	)}
	p := Project(ds, ProjectionOptions{Mode: "data"})
	require.Equal(t, BranchData, p.Branch)
	require.Equal(t, []string{"Código BIP", ProjectColumn, ServiceColumn}, p.Columns)
	require.Len(t, p.Rows, 1)
	require.Same(t, ds[0], p.Rows[0])
}

func TestProject_DataModeFallsBackToAllColumns(t *testing.T) {
	ds := table.Dataset{table.RowOf("Comuna", "Temuco", "Monto", 1.0)}
	p := Project(ds, ProjectionOptions{Mode: "data"})
	require.Equal(t, BranchData, p.Branch)
	require.Equal(t, []string{"Comuna", "Monto"}, p.Columns)
}

func TestProject_DataModeIsCaseSensitive(t *testing.T) {
	ds := table.Dataset{table.RowOf("Comuna", "Temuco", "Monto", 1.0)}
	for _, mode := range []string{"DATA", " data", "Data"} {
		require.Equal(t, BranchDefault, Project(ds, ProjectionOptions{Mode: mode}).Branch, mode)
	}
}

func TestProject_HospitalLabelOrderIsStable(t *testing.T) {
	composed := "Dise\u00f1o"
	decomposed := "Disen\u0303o"
	ds := table.Dataset{
		table.RowOf(ServiceColumn, "S1", ProjectColumn, "P1", "Clasificación", decomposed),
		table.RowOf(ServiceColumn, "S1", ProjectColumn, "P1", "Clasificación", composed),
		table.RowOf(ServiceColumn, "S1", ProjectColumn, "P1", "Clasificación", "Normativa"),
	}
	want := []string{ServiceColumn, ProjectColumn, TotalColumn, "Normativa", decomposed, composed}
	for i := 0; i < 100; i++ {
		p := Project(ds, ProjectionOptions{})
		require.Equal(t, want, p.Columns)
		require.Equal(t, want, p.Rows[0].Keys())
	}
	require.Equal(t, []string{decomposed, composed, "Normativa"}, Aggregate(ds)[0].Labels)
}

func TestProject_Construction(t *testing.T) {
	ds := table.Dataset{table.RowOf(
		"Comuna", "Temuco",
		"Fecha Termino", "01/01/2024",
		"% Avance Fisico", 0.4,
		"Servicio Salud", "Araucanía Sur",
		"Monitor", "Ana",
		"Nombre de la Obra", "Hospital",
		"BIP", 301.0,
	)}
	p := Project(ds, ProjectionOptions{})
	require.Equal(t, BranchConstruction, p.Branch)
	require.Equal(t, []string{"BIP", "Nombre de la Obra", "Monitor", "Servicio Salud", "% Avance Fisico", "Fecha Termino"}, p.Columns)
	require.False(t, p.Aggregated())
}

func TestProject_ConstructionThreshold(t *testing.T) {
	ds := table.Dataset{table.RowOf("Código", "1", "Comuna", "Temuco", "Monitor", "Ana")}

	p := Project(ds, ProjectionOptions{})
	require.Equal(t, BranchConstruction, p.Branch)
	require.Equal(t, []string{"Código", "Comuna", "Monitor"}, p.Columns)

	p = Project(ds, ProjectionOptions{MinColumns: 2})
	require.Equal(t, []string{"Código", "Monitor"}, p.Columns)
}

func TestProject_Default(t *testing.T) {
	ds := table.Dataset{table.RowOf("Comuna", "Temuco", "Estado", "T"), table.RowOf("Comuna", "Angol")}
	p := Project(ds, ProjectionOptions{})
	require.Equal(t, BranchDefault, p.Branch)
	require.Equal(t, []string{"Comuna", "Estado"}, p.Columns)
	require.Len(t, p.Rows, 2)
}
