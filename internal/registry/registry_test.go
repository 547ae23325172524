package registry

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestRegistrySortedTools(t *testing.T) {
	r := New()
	r.Register(mcp.NewTool("set_filter", mcp.WithDescription("b")))
	r.Register(mcp.NewTool("analyze_dataset", mcp.WithDescription("a")))
	r.Register(mcp.NewTool("set_filter", mcp.WithDescription("replaced")))

	tools, err := r.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	require.Equal(t, []string{"analyze_dataset", "set_filter"}, r.Names())

	got, ok := r.Get("set_filter")
	require.True(t, ok)
	require.Equal(t, "replaced", got.Description)
	_, ok = r.Get("missing")
	require.False(t, ok)

	require.Equal(t, len("analyze_dataset")+1+len("set_filter")+len("replaced"), r.DescriptionBytes())
	require.Equal(t, 8192, r.ModelContextSize("gpt-4"))
}

func TestDisabledToolFilter(t *testing.T) {
	tools := []mcp.Tool{mcp.NewTool("open_dataset"), mcp.NewTool("export_json"), mcp.NewTool("read_table")}

	f := NewDisabledToolFilter([]string{" Export_JSON ", ""})
	got := f.FilterTools(context.Background(), tools)
	require.Len(t, got, 2)
	require.Equal(t, "open_dataset", got[0].Name)
	require.Equal(t, "read_table", got[1].Name)
	require.True(t, f.Disabled("export_json"))

	t.Setenv(EnvDisabledTools, "")
	require.Len(t, NewDisabledToolFilterFromEnv().FilterTools(context.Background(), tools), 3)

	t.Setenv(EnvDisabledTools, "open_dataset,read_table")
	got = NewDisabledToolFilterFromEnv().FilterTools(context.Background(), tools)
	require.Len(t, got, 1)
	require.Equal(t, "export_json", got[0].Name)
}
