package tools

import (
	"context"
	"fmt"
	"math"
	"strings"
)

type capabilityWrite struct {
	capability string
	value      any
}

// minDim keeps a brightness change from switching a light off.
const minDim = 0.01

func (r *Registry) lightingTools() []registration {
	return []registration{
		{Tool{
			Name:        "control_lights_in_zone",
			Description: "Control all lights in a zone",
			Parameters: object(map[string]any{
				"zone_name": map[string]any{"type": "string", "description": "Zone name"},
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"on", "off", "toggle"},
					"description": "Action: 'on', 'off' or 'toggle'",
				},
				"brightness": map[string]any{
					"type": "number", "minimum": 1, "maximum": 100,
					"description": "Brightness percentage (1-100%). Only works with 'on' action.",
				},
				"color_temperature": map[string]any{
					"type": "number", "minimum": 0, "maximum": 100,
					"description": "Optional: color temperature percentage (0=warm, 100=cold white)",
				},
			}, "zone_name", "action"),
		}, r.handleControlLightsInZone},
		{Tool{
			Name:        "set_light_color",
			Description: "Set the color of a light",
			Parameters: object(map[string]any{
				"device_id": map[string]any{"type": "string", "description": "The light device ID"},
				"hue": map[string]any{
					"type": "number", "minimum": 0, "maximum": 360,
					"description": "Color in degrees (0=red, 120=green, 240=blue)",
				},
				"saturation": map[string]any{
					"type": "number", "minimum": 0, "maximum": 100,
					"description": "Saturation percentage (0=white, 100=fully saturated)",
				},
				"brightness": map[string]any{
					"type": "number", "minimum": 1, "maximum": 100,
					"description": "Optional: brightness percentage",
				},
			}, "device_id", "hue", "saturation"),
		}, r.handleSetLightColor},
	}
}

func (r *Registry) handleControlLightsInZone(ctx context.Context, args Args) (*ToolResult, error) {
	zone := args.String("zone_name")
	action := args.String("action")
	brightness, hasBrightness := args.Float("brightness")
	colorTemp, hasColorTemp := args.Float("color_temperature")

	devices, err := r.backend.Devices.List(ctx)
	if err != nil {
		return fail("Error controlling lights: %v", err), nil
	}

	var lights []string
	for _, id := range sortedIDs(devices) {
		if d := devices[id]; d.Class == "light" && inZone(d, zone) {
			lights = append(lights, id)
		}
	}
	if len(lights) == 0 {
		return ok("No lights found in zone '%s'", zone), nil
	}

	set := func(id, name string, v any) error {
		_, err := r.backend.Devices.SetCapability(ctx, id, name, v)
		return err
	}

	results := make([]string, 0, len(lights))
	for _, id := range lights {
		d := devices[id]
		line, err := func() (string, error) {
			switch action {
			case "on":
				var line string
				if hasBrightness && d.HasCapability("dim") {
					if err := set(id, "dim", math.Max(minDim, brightness/100)); err != nil {
						return "", err
					}
					if err := set(id, "onoff", true); err != nil {
						return "", err
					}
					line = fmt.Sprintf("✅ %s: turned on (%s%%)", d.Name, num(brightness))
				} else {
					if err := set(id, "onoff", true); err != nil {
						return "", err
					}
					line = fmt.Sprintf("✅ %s: turned on", d.Name)
				}
				if hasColorTemp && d.HasCapability("light_temperature") {
					if err := set(id, "light_temperature", colorTemp/100); err != nil {
						return "", err
					}
					line += fmt.Sprintf(" (temp: %s%%)", num(colorTemp))
				}
				return line, nil
			case "off":
				if err := set(id, "onoff", false); err != nil {
					return "", err
				}
				return fmt.Sprintf("✅ %s: turned off", d.Name), nil
			default:
				current, _ := d.CapabilityValue("onoff").(bool)
				if err := set(id, "onoff", !current); err != nil {
					return "", err
				}
				if !current {
					return fmt.Sprintf("✅ %s: turned on", d.Name), nil
				}
				return fmt.Sprintf("✅ %s: turned off", d.Name), nil
			}
		}()
		if err != nil {
			r.log.Warnw("light control failed", "device", id, "action", action, "error", err)
			line = fmt.Sprintf("❌ %s: error - %v", d.Name, err)
		}
		results = append(results, line)
	}

	return ok("Lights in '%s' controlled:\n\n%s", zone, strings.Join(results, "\n")), nil
}

func (r *Registry) handleSetLightColor(ctx context.Context, args Args) (*ToolResult, error) {
	id := args.String("device_id")
	hue, _ := args.Float("hue")
	saturation, _ := args.Float("saturation")
	brightness, hasBrightness := args.Float("brightness")

	device, err := r.backend.Devices.Get(ctx, id)
	if err != nil {
		return fail("Error setting light color: %v", err), nil
	}
	name := displayName(device, id)
	if device.Class != "light" {
		return fail("Device '%s' is not a light (class: %s)", name, device.Class), nil
	}

	var missing []string
	for _, c := range []string{"light_hue", "light_saturation"} {
		if !device.HasCapability(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fail("Light '%s' has no color support (missing: %s)", name, strings.Join(missing, ", ")), nil
	}

	var writes []capabilityWrite
	if device.HasCapability("light_mode") {
		writes = append(writes, capabilityWrite{"light_mode", "color"})
	}
	writes = append(writes,
		capabilityWrite{"light_hue", hue / 360},
		capabilityWrite{"light_saturation", saturation / 100},
	)
	for _, w := range writes {
		if _, err := r.backend.Devices.SetCapability(ctx, id, w.capability, w.value); err != nil {
			return fail("Error setting light color: %v", err), nil
		}
	}

	text := fmt.Sprintf("✅ Light '%s' color set (hue: %s°, saturation: %s%%", name, num(hue), num(saturation))
	if hasBrightness && device.HasCapability("dim") {
		if _, err := r.backend.Devices.SetCapability(ctx, id, "dim", math.Max(minDim, brightness/100)); err != nil {
			return fail("Error setting light color: %v", err), nil
		}
		if _, err := r.backend.Devices.SetCapability(ctx, id, "onoff", true); err != nil {
			return fail("Error setting light color: %v", err), nil
		}
		text += fmt.Sprintf(", brightness: %s%%", num(brightness))
	}
	return ok("%s)", text), nil
}
