package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/config"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/homey"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/tools"
)

func newDemoServer(t *testing.T) *Server {
	t.Helper()
	client := homey.New(&config.Config{DemoMode: true, CacheTTL: time.Minute, RequestTimeout: time.Second})
	reg, err := tools.NewRegistry(tools.FromClient(client))
	require.NoError(t, err)
	return New(reg, "test", logger.Nop())
}

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := s.callTool(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestCallTool(t *testing.T) {
	s := newDemoServer(t)

	res := call(t, s, "control_lights_in_zone", map[string]any{"zone_name": "Living Room", "action": "on", "brightness": 80})
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "✅ Living Room Lamp: turned on (80%)")

	res = call(t, s, "trigger_flow", map[string]any{"flow_id": "flow1"})
	assert.False(t, res.IsError)
	assert.Equal(t, "✅ Flow 'Good Morning Routine' started successfully", text(t, res))

	res = call(t, s, "get_device_status", map[string]any{"device_id": "missing"})
	assert.True(t, res.IsError)
	assert.Equal(t, "❌ Error getting device status: Device missing not found", text(t, res))

	res = call(t, s, "does_not_exist", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "unknown tool: does_not_exist", text(t, res))
}

func TestToolsList(t *testing.T) {
	s := newDemoServer(t)
	ctx := context.Background()

	s.mcp.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))
	resp := s.mcp.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string         `json:"name"`
				InputSchema map[string]any `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Result.Tools, 17)

	byName := map[string]map[string]any{}
	for _, tool := range decoded.Result.Tools {
		byName[tool.Name] = tool.InputSchema
	}
	require.Contains(t, byName, "set_thermostat_temperature")
	props := byName["set_thermostat_temperature"]["properties"].(map[string]any)
	temp := props["temperature"].(map[string]any)
	assert.Equal(t, 5.0, temp["minimum"])
	assert.Equal(t, 35.0, temp["maximum"])
}
