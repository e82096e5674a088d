package tools

import (
	"context"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

func (r *Registry) flowTools() []registration {
	return []registration{
		{Tool{
			Name:        "get_flows",
			Description: "Get all Homey flows (automations)",
			Parameters:  object(map[string]any{}),
		}, r.handleGetFlows},
		{Tool{
			Name:        "trigger_flow",
			Description: "Start a specific Homey flow",
			Parameters: object(map[string]any{
				"flow_id": map[string]any{"type": "string", "description": "The ID of the flow to start"},
			}, "flow_id"),
		}, r.handleTriggerFlow},
		{Tool{
			Name:        "find_flow_by_name",
			Description: "Search flows by name",
			Parameters: object(map[string]any{
				"flow_name": map[string]any{"type": "string", "description": "Name or part of the name of the flow"},
			}, "flow_name"),
		}, r.handleFindFlowByName},
	}
}

type flowSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Broken  bool   `json:"broken"`
}

func summarizeFlow(id string, f models.Flow) flowSummary {
	return flowSummary{ID: id, Name: f.Name, Enabled: f.Enabled, Broken: f.Broken}
}

func (r *Registry) handleGetFlows(ctx context.Context, _ Args) (*ToolResult, error) {
	flows, err := r.backend.Flows.List(ctx)
	if err != nil {
		return fail("Error getting flows: %v", err), nil
	}
	list := make([]flowSummary, 0, len(flows))
	for _, id := range sortedIDs(flows) {
		list = append(list, summarizeFlow(id, flows[id]))
	}
	return ok("Found %d flows:\n\n%s", len(list), prettyJSON(list)), nil
}

func (r *Registry) handleTriggerFlow(ctx context.Context, args Args) (*ToolResult, error) {
	id := args.String("flow_id")

	flows, err := r.backend.Flows.List(ctx)
	if err != nil {
		return fail("Error starting flow: %v", err), nil
	}
	flow, found := flows[id]
	if !found {
		return fail("Flow with ID '%s' not found", id), nil
	}
	name := flow.Name
	if name == "" {
		name = id
	}

	if err := r.backend.Flows.Trigger(ctx, id); err != nil {
		return fail("Could not start flow '%s': %v", name, err), nil
	}
	return ok("✅ Flow '%s' started successfully", name), nil
}

func (r *Registry) handleFindFlowByName(ctx context.Context, args Args) (*ToolResult, error) {
	query := args.String("flow_name")

	flows, err := r.backend.Flows.List(ctx)
	if err != nil {
		return fail("Error searching flows: %v", err), nil
	}
	var matches []flowSummary
	for _, id := range sortedIDs(flows) {
		if f := flows[id]; containsFold(f.Name, query) {
			matches = append(matches, summarizeFlow(id, f))
		}
	}
	if len(matches) == 0 {
		return ok("No flows found with name '%s'", query), nil
	}
	return ok("Found %d flows matching '%s':\n\n%s", len(matches), query, prettyJSON(matches)), nil
}
