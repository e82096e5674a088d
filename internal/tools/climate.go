package tools

import (
	"context"
	"fmt"
)

func (r *Registry) climateTools() []registration {
	return []registration{
		{Tool{
			Name:        "set_thermostat_temperature",
			Description: "Set the desired temperature of a thermostat",
			Parameters: object(map[string]any{
				"device_id": map[string]any{"type": "string", "description": "The thermostat device ID"},
				"temperature": map[string]any{
					"type": "number", "minimum": 5, "maximum": 35,
					"description": "Desired temperature in degrees Celsius",
				},
			}, "device_id", "temperature"),
		}, r.handleSetThermostatTemperature},
	}
}

func (r *Registry) handleSetThermostatTemperature(ctx context.Context, args Args) (*ToolResult, error) {
	id := args.String("device_id")
	temperature, _ := args.Float("temperature")

	device, err := r.backend.Devices.Get(ctx, id)
	if err != nil {
		return fail("Error setting thermostat: %v", err), nil
	}
	name := displayName(device, id)
	if device.Class != "thermostat" {
		return fail("Device '%s' is not a thermostat (class: %s)", name, device.Class), nil
	}
	if !device.HasCapability("target_temperature") {
		return fail("Thermostat '%s' has no target_temperature capability", name), nil
	}

	if _, err := r.backend.Devices.SetCapability(ctx, id, "target_temperature", temperature); err != nil {
		return fail("Error setting thermostat: %v", err), nil
	}

	var current string
	if v := device.CapabilityValue("measure_temperature"); v != nil {
		current = fmt.Sprintf(" (current: %s°C)", display(v))
	}
	return ok("✅ Thermostat '%s' set to %s°C%s", name, num(temperature), current), nil
}
