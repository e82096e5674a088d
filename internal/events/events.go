// Package events publishes outbound notifications about writes made through
// the adapter. Nothing is ever consumed from the hub.
package events

import (
	"context"
	"time"
)

const (
	KindCapabilitySet = "capability_set"
	KindFlowTriggered = "flow_triggered"
)

type Event struct {
	Kind       string    `json:"kind"`
	DeviceID   string    `json:"device_id,omitempty"`
	Capability string    `json:"capability,omitempty"`
	Value      any       `json:"value,omitempty"`
	FlowID     string    `json:"flow_id,omitempty"`
	Demo       bool      `json:"demo"`
	Time       time.Time `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
