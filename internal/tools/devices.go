package tools

import (
	"context"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

type registration struct {
	tool    Tool
	handler ToolHandler
}

func (r *Registry) registerBuiltinTools() error {
	groups := [][]registration{
		r.deviceTools(),
		r.lightingTools(),
		r.climateTools(),
		r.sensorTools(),
		r.flowTools(),
		r.insightsTools(),
		r.energyTools(),
		r.diagnosticTools(),
	}
	for _, group := range groups {
		for _, reg := range group {
			if err := r.Register(reg.tool, reg.handler); err != nil {
				return err
			}
		}
	}
	return nil
}

func object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (r *Registry) deviceTools() []registration {
	return []registration{
		{Tool{
			Name:        "get_devices",
			Description: "Get all Homey devices with their current status",
			Parameters:  object(map[string]any{}),
		}, r.handleGetDevices},
		{Tool{
			Name:        "control_device",
			Description: "Control a Homey device by setting a capability value",
			Parameters: object(map[string]any{
				"device_id": map[string]any{"type": "string", "description": "The device ID"},
				"capability": map[string]any{
					"type": "string",
					"description": "The capability to control. Examples:\n" +
						"- onoff: true/false (on/off)\n" +
						"- dim: 0.0-1.0 or 0-100% (brightness)\n" +
						"- target_temperature: number (desired temp in °C)\n" +
						"- light_hue: 0.0-1.0 (color)\n" +
						"- light_saturation: 0.0-1.0 (saturation)\n" +
						"- light_temperature: 0.0-1.0 (warm-cold white)\n" +
						"- light_mode: 'color' or 'temperature'",
				},
				"value": map[string]any{
					"description": "The value to set. Note types:\n" +
						"- boolean for onoff, alarm_*\n" +
						"- number 0.0-1.0 for dim, light_* (or 0-100% will be auto-converted)\n" +
						"- number for temperatures, power, etc.",
				},
			}, "device_id", "capability", "value"),
		}, r.handleControlDevice},
		{Tool{
			Name:        "get_device_status",
			Description: "Get the status of a specific device",
			Parameters: object(map[string]any{
				"device_id": map[string]any{"type": "string", "description": "The device ID"},
			}, "device_id"),
		}, r.handleGetDeviceStatus},
		{Tool{
			Name:        "find_devices_by_zone",
			Description: "Find devices in a specific zone",
			Parameters: object(map[string]any{
				"zone_name":    map[string]any{"type": "string", "description": "Zone name (e.g. 'Living Room', 'Bedroom')"},
				"device_class": map[string]any{"type": "string", "description": "Optional: filter by device class (e.g. 'light', 'sensor')"},
			}, "zone_name"),
		}, r.handleFindDevicesByZone},
	}
}

type deviceSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Zone  string `json:"zone"`
}

type deviceListing struct {
	deviceSummary
	Capabilities []string `json:"capabilities"`
	Available    bool     `json:"available"`
}

func (r *Registry) handleGetDevices(ctx context.Context, _ Args) (*ToolResult, error) {
	devices, err := r.backend.Devices.List(ctx)
	if err != nil {
		return fail("Error getting devices: %v", err), nil
	}

	list := make([]deviceListing, 0, len(devices))
	for _, id := range sortedIDs(devices) {
		d := devices[id]
		list = append(list, deviceListing{
			deviceSummary: deviceSummary{ID: id, Name: d.Name, Class: d.Class, Zone: d.Zone},
			Capabilities:  sortedCapabilities(d),
			Available:     d.Available,
		})
	}
	return ok("Found %d devices:\n\n%s", len(list), prettyJSON(list)), nil
}

func displayName(d models.Device, id string) string {
	if d.Name != "" {
		return d.Name
	}
	return id
}

func (r *Registry) handleControlDevice(ctx context.Context, args Args) (*ToolResult, error) {
	id := args.String("device_id")
	capName := args.String("capability")
	value := args["value"]

	device, err := r.backend.Devices.Get(ctx, id)
	if err != nil {
		return fail("Error controlling device: %v", err), nil
	}
	if _, err := r.backend.Devices.SetCapability(ctx, id, capName, value); err != nil {
		return fail("Error controlling device: %v", err), nil
	}
	return ok("✅ Device '%s' capability '%s' set to '%s'", displayName(device, id), capName, display(value)), nil
}

type deviceStatus struct {
	Name         string                            `json:"name"`
	Class        string                            `json:"class"`
	Zone         string                            `json:"zone"`
	Available    bool                              `json:"available"`
	Capabilities map[string]models.CapabilityState `json:"capabilities"`
}

func (r *Registry) handleGetDeviceStatus(ctx context.Context, args Args) (*ToolResult, error) {
	device, err := r.backend.Devices.Get(ctx, args.String("device_id"))
	if err != nil {
		return fail("Error getting device status: %v", err), nil
	}

	status := deviceStatus{
		Name:         device.Name,
		Class:        device.Class,
		Zone:         device.Zone,
		Available:    device.Available,
		Capabilities: make(map[string]models.CapabilityState, len(device.Capabilities)),
	}
	for name, c := range device.Capabilities {
		if c.Title == "" {
			c.Title = name
		}
		status.Capabilities[name] = c
	}
	return ok("Status of '%s':\n\n%s", device.Name, prettyJSON(status)), nil
}

func (r *Registry) handleFindDevicesByZone(ctx context.Context, args Args) (*ToolResult, error) {
	zone := args.String("zone_name")
	class := args.String("device_class")

	devices, err := r.backend.Devices.List(ctx)
	if err != nil {
		return fail("Error searching devices: %v", err), nil
	}

	var matches []deviceSummary
	for _, id := range sortedIDs(devices) {
		d := devices[id]
		if !inZone(d, zone) || (class != "" && d.Class != class) {
			continue
		}
		matches = append(matches, deviceSummary{ID: id, Name: d.Name, Class: d.Class, Zone: d.Zone})
	}
	if len(matches) == 0 {
		return ok("No devices found in zone '%s'", zone), nil
	}
	return ok("Found %d devices in '%s':\n\n%s", len(matches), zone, prettyJSON(matches)), nil
}
