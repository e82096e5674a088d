package tools

import (
	"context"
	"fmt"
	"strings"
)

func (r *Registry) diagnosticTools() []registration {
	return []registration{
		{Tool{
			Name:        "test_endpoints",
			Description: "Probe the known Homey API endpoints and report which ones answer",
			Parameters:  object(map[string]any{}),
		}, r.handleTestEndpoints},
	}
}

func (r *Registry) handleTestEndpoints(ctx context.Context, _ Args) (*ToolResult, error) {
	results, err := r.backend.Diagnostics.TestEndpoints(ctx)
	if err != nil {
		return fail("Error testing endpoints: %v", err), nil
	}
	if results["demo_mode"] {
		return ok("🧪 Demo mode active, no Homey endpoints were probed"), nil
	}

	var b strings.Builder
	working := 0
	for _, path := range sortedIDs(results) {
		mark := "❌"
		if results[path] {
			mark = "✅"
			working++
		}
		fmt.Fprintf(&b, "%s %s\n", mark, path)
	}
	return ok("🔍 **Endpoint check:** %d/%d reachable\n\n%s", working, len(results), strings.TrimRight(b.String(), "\n")), nil
}
