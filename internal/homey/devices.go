package homey

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/capability"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/events"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

type DeviceAPI struct {
	c *Client
}

// List returns every device keyed by id. Live results are served from the
// cache while it is fresh.
func (d *DeviceAPI) List(ctx context.Context) (map[string]models.Device, error) {
	if d.c.demo() {
		devices := demoDevices()
		d.c.log.Debugw("demo devices", "count", len(devices))
		return devices, nil
	}

	if cached, ok := d.c.devices.Load(); ok {
		return cached, nil
	}

	_, data, err := d.c.do(ctx, "devices.list", http.MethodGet, "/api/manager/devices/device/", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}
	var devices map[string]models.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("failed to decode devices: %w", err)
	}
	d.c.devices.Replace(devices)
	d.c.log.Infow("devices retrieved", "count", len(devices))
	return devices, nil
}

func (d *DeviceAPI) Get(ctx context.Context, id string) (models.Device, error) {
	devices, err := d.List(ctx)
	if err != nil {
		return models.Device{}, err
	}
	dev, ok := devices[id]
	if !ok {
		return models.Device{}, &NotFoundError{Kind: "device", ID: id}
	}
	return dev, nil
}

// SetCapability validates raw, writes it to the hub and returns the value that
// was sent. A 405 on PUT is retried once with POST.
func (d *DeviceAPI) SetCapability(ctx context.Context, id, name string, raw any) (any, error) {
	res := capability.Validate(name, raw)
	if !res.Valid {
		return nil, &ValidationError{Capability: name, Value: raw, Reason: res.Note}
	}
	if res.Note != "" {
		d.c.log.Infow("capability value converted", "capability", name, "note", res.Note)
	}

	if d.c.demo() {
		d.c.log.Infow("demo mode, capability not written", "device", id, "capability", name, "value", res.Value)
		d.c.publish(ctx, events.Event{Kind: events.KindCapabilitySet, DeviceID: id, Capability: name, Value: res.Value})
		return res.Value, nil
	}

	path := "/api/manager/devices/device/" + url.PathEscape(id) + "/capability/" + url.PathEscape(name) + "/"
	payload := map[string]any{"value": res.Value}

	_, _, err := d.c.do(ctx, "devices.set_capability", http.MethodPut, path, nil, payload)
	if StatusOf(err) == http.StatusMethodNotAllowed {
		d.c.log.Warnw("PUT not supported, retrying with POST", "path", path)
		_, _, err = d.c.do(ctx, "devices.set_capability", http.MethodPost, path, nil, payload)
	}
	if err != nil {
		d.c.log.Errorw("failed to set capability", "path", path, "value", res.Value, "error", err)
		return nil, fmt.Errorf("failed to set %s on %s: %w", name, id, err)
	}

	d.c.devices.Update(id, func(dev models.Device) (models.Device, bool) {
		state, ok := dev.Capabilities[name]
		if !ok {
			return dev, false
		}
		state.Value = res.Value
		dev.Capabilities[name] = state
		return dev, true
	})

	d.c.log.Infow("capability set", "device", id, "capability", name, "value", res.Value)
	d.c.publish(ctx, events.Event{Kind: events.KindCapabilitySet, DeviceID: id, Capability: name, Value: res.Value})
	return res.Value, nil
}
