package registry

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// EnvDisabledTools names the comma-separated list of tools hidden from discovery.
const EnvDisabledTools = "SHEETLENS_DISABLED_TOOLS"

// DisabledToolFilter hides operator-disabled tools from discovery.
type DisabledToolFilter struct {
	disabled map[string]struct{}
}

// NewDisabledToolFilter builds a filter from tool names; matching is case-insensitive.
func NewDisabledToolFilter(names []string) *DisabledToolFilter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return &DisabledToolFilter{disabled: set}
}

// NewDisabledToolFilterFromEnv constructs a filter using SHEETLENS_DISABLED_TOOLS.
func NewDisabledToolFilterFromEnv() *DisabledToolFilter {
	return NewDisabledToolFilter(strings.Split(os.Getenv(EnvDisabledTools), ","))
}

// Disabled reports whether a tool is hidden.
func (f *DisabledToolFilter) Disabled(name string) bool {
	_, ok := f.disabled[strings.ToLower(name)]
	return ok
}

// FilterTools implements server tool filtering semantics.
func (f *DisabledToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if len(f.disabled) == 0 {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if f.Disabled(t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}
