package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		ev     Event
		want   string
	}{
		{"capability", "homey-mcp", Event{Kind: KindCapabilitySet, DeviceID: "light1", Capability: "onoff"}, "homey-mcp/device/light1/capability/onoff"},
		{"flow", "homey-mcp", Event{Kind: KindFlowTriggered, FlowID: "flow1"}, "homey-mcp/flow/flow1/triggered"},
		{"no prefix", "", Event{Kind: KindFlowTriggered, FlowID: "f"}, "flow/f/triggered"},
		{"other kind", "p", Event{Kind: "custom"}, "p/event/custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Topic(tt.prefix, tt.ev))
		})
	}
}

func TestEventPayload(t *testing.T) {
	ev := Event{
		Kind:       KindCapabilitySet,
		DeviceID:   "light1",
		Capability: "dim",
		Value:      0.5,
		Time:       time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"capability_set","device_id":"light1","capability":"dim","value":0.5,"demo":false,"time":"2025-03-01T08:00:00Z"}`, string(raw))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{Kind: KindFlowTriggered}))
}
