package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/sheetlens/internal/table"
)

func column(name string, values ...any) table.Dataset {
	ds := make(table.Dataset, len(values))
	for i, v := range values {
		ds[i] = table.RowOf(name, v)
	}
	return ds
}

func TestCharts_RankingAndStableTies(t *testing.T) {
	ds := column("Estado", "C", "A", "B", "A", "B", "A", "C", "A", "B", "A", "C")
	specs := Charts(ds, []string{"Estado"}, "")
	require.Len(t, specs, 1)
	require.Equal(t, "Proyectos por Estado", specs[0].Title)
	require.Equal(t, "Estado", specs[0].Key)
	require.Equal(t, []ChartEntry{{"A", 5}, {"C", 3}, {"B", 3}}, specs[0].Data)
}

func TestCharts_EmptyPlaceholder(t *testing.T) {
	ds := column("Comuna", "Temuco", "", nil, "Temuco")
	ds = append(ds, table.RowOf("Otra", "x"))
	specs := Charts(ds, []string{"Comuna"}, "")
	require.Len(t, specs, 1)
	require.Equal(t, []ChartEntry{{"(Vacío)", 3}, {"Temuco", 2}}, specs[0].Data)
}

func TestCharts_CardinalityBounds(t *testing.T) {
	build := func(n int) table.Dataset {
		vals := make([]any, n)
		for i := range vals {
			vals[i] = fmt.Sprintf("v%03d", i)
		}
		return column("Etapa", vals...)
	}
	require.Empty(t, Charts(build(1), []string{"Etapa"}, ""))
	require.Empty(t, Charts(build(101), []string{"Etapa"}, ""))

	specs := Charts(build(100), []string{"Etapa"}, "")
	require.Len(t, specs, 1)
	require.Len(t, specs[0].Data, 15)

	specs = Charts(build(2), []string{"Etapa"}, "")
	require.Len(t, specs[0].Data, 2)
}

func TestCharts_SkipsIdentifiersAndFilterColumn(t *testing.T) {
	ds := table.Dataset{
		table.RowOf("Codigo", "a", "ID Obra", "x", "Estado", "T", "Comuna", "Temuco"),
		table.RowOf("Codigo", "b", "ID Obra", "y", "Estado", "E", "Comuna", "Angol"),
	}
	specs := Charts(ds, []string{"Codigo", "ID Obra", "Estado", "Comuna"}, "Estado")
	require.Len(t, specs, 1)
	require.Equal(t, "Comuna", specs[0].Key)
}

func TestCharts_TitlesAndPriority(t *testing.T) {
	cols := []string{"Tipo", "Comuna", "Macrozona", "SERVICIO DE SALUD", "Estado", "NOMBRE DEL PROYECTO", "Zona", "Partida"}
	ds := table.Dataset{table.NewRow(), table.NewRow()}
	for _, c := range cols {
		ds[0].Set(c, c+"-1")
		ds[1].Set(c, c+"-2")
	}
	specs := Charts(ds, cols, "")
	titles := make([]string, len(specs))
	for i, s := range specs {
		titles[i] = s.Title
	}
	// "Registros por Proyecto" contains no priority term, so it ranks with
	// the unmatched titles in original order.
	require.Equal(t, []string{
		"Proyectos por SERVICIO DE SALUD",
		"Proyectos por Partida",
		"Cartera",
		"Proyectos por Estado",
		"Proyectos por Comuna",
		"Proyectos por Tipo",
	}, titles)
}

func TestChartTitle(t *testing.T) {
	require.Equal(t, "Cartera", ChartTitle("Macrozona"))
	require.Equal(t, "Registros por Proyecto", ChartTitle("NOMBRE DEL PROYECTO"))
	require.Equal(t, "Proyectos por Comuna", ChartTitle("Comuna"))
}
