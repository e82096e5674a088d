package tools

import (
	"context"
	"fmt"
	"strings"
)

func (r *Registry) sensorTools() []registration {
	return []registration{
		{Tool{
			Name:        "get_sensor_readings",
			Description: "Get sensor readings from a specific zone",
			Parameters: object(map[string]any{
				"zone_name": map[string]any{"type": "string", "description": "Zone name"},
				"sensor_type": map[string]any{
					"type":        "string",
					"enum":        []string{"temperature", "humidity", "battery", "power", "all"},
					"description": "Sensor data type (optional, defaults to 'all')",
				},
			}, "zone_name"),
		}, r.handleGetSensorReadings},
	}
}

// sensorUnits maps capability prefixes to the unit appended to their value.
var sensorUnits = []struct {
	prefix string
	unit   string
}{
	{"measure_temperature", "°C"},
	{"measure_humidity", "%"},
	{"measure_battery", "%"},
	{"measure_power", "W"},
}

func formatReading(capName string, value any) string {
	if strings.HasPrefix(capName, "alarm_") {
		if b, _ := value.(bool); b {
			return "🚨 ACTIVE"
		}
		return "✅ OK"
	}
	for _, u := range sensorUnits {
		if strings.HasPrefix(capName, u.prefix) {
			return display(value) + u.unit
		}
	}
	return display(value)
}

func isSensorCapability(name string) bool {
	return strings.HasPrefix(name, "measure_") || strings.HasPrefix(name, "alarm_")
}

func (r *Registry) handleGetSensorReadings(ctx context.Context, args Args) (*ToolResult, error) {
	zone := args.String("zone_name")
	sensorType := args.StringOr("sensor_type", "all")

	devices, err := r.backend.Devices.List(ctx)
	if err != nil {
		return fail("Error getting sensor data: %v", err), nil
	}

	lines := []string{fmt.Sprintf("Sensor readings in '%s':", zone)}
	found := 0
	for _, id := range sortedIDs(devices) {
		d := devices[id]
		if !inZone(d, zone) {
			continue
		}
		var readings []string
		for _, capName := range sortedCapabilities(d) {
			if !isSensorCapability(capName) || (sensorType != "all" && !strings.Contains(capName, sensorType)) {
				continue
			}
			c := d.Capabilities[capName]
			title := c.Title
			if title == "" {
				title = capName
			}
			readings = append(readings, fmt.Sprintf("  • %s: %s", title, formatReading(capName, c.Value)))
		}
		if len(readings) == 0 {
			continue
		}
		found++
		lines = append(lines, fmt.Sprintf("\n📊 %s (%s):", d.Name, d.Class))
		lines = append(lines, readings...)
	}

	if found == 0 {
		return ok("No sensors found in zone '%s'", zone), nil
	}
	return ok("%s", strings.Join(lines, "\n")), nil
}
