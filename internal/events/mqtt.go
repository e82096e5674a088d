package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/observability"
)

const publishTimeout = 5 * time.Second

type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	log    *logger.Logger
}

// ConnectMQTT dials the broker. mqtt:// URLs are rewritten to tcp:// for paho.
func ConnectMQTT(brokerURL, clientID, topicPrefix string, log *logger.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	url := strings.TrimSpace(brokerURL)
	if strings.HasPrefix(url, "mqtt://") {
		url = "tcp://" + strings.TrimPrefix(url, "mqtt://")
	}
	opts.AddBroker(url)
	if strings.TrimSpace(clientID) == "" {
		clientID = "homey-mcp-" + time.Now().Format("150405.000")
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnw("mqtt connection lost", "error", err)
	}
	opts.OnConnect = func(_ mqtt.Client) {
		log.Infow("mqtt connected", "broker", url)
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect to %s timed out", url)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", url, err)
	}
	return &MQTTPublisher{client: c, prefix: topicPrefix, log: log}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := Topic(p.prefix, ev)

	tok := p.client.Publish(topic, 0, false, payload)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		observability.ObserveEvent(ev.Kind, "canceled")
		return ctx.Err()
	case <-time.After(publishTimeout):
		observability.ObserveEvent(ev.Kind, "timeout")
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	if err := tok.Error(); err != nil {
		observability.ObserveEvent(ev.Kind, "error")
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	observability.ObserveEvent(ev.Kind, "ok")
	p.log.Debugw("event published", "topic", topic)
	return nil
}

func (p *MQTTPublisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(1000)
}

// Topic places capability events under the device and flow events under the
// flow, e.g. homey-mcp/device/light1/capability/onoff.
func Topic(prefix string, ev Event) string {
	var suffix string
	switch ev.Kind {
	case KindCapabilitySet:
		suffix = "device/" + ev.DeviceID + "/capability/" + ev.Capability
	case KindFlowTriggered:
		suffix = "flow/" + ev.FlowID + "/triggered"
	default:
		suffix = "event/" + ev.Kind
	}
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}
