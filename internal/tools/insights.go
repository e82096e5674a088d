package tools

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/homey"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

var insightPeriods = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

func (r *Registry) insightsTools() []registration {
	return []registration{
		{Tool{
			Name:        "get_device_insights",
			Description: "Get historical data for device capability over a period",
			Parameters: object(map[string]any{
				"device_id": map[string]any{"type": "string", "description": "The device ID"},
				"capability": map[string]any{
					"type":        "string",
					"description": "Capability name (e.g. measure_temperature, dim, onoff, measure_power)",
				},
				"period": map[string]any{
					"type":        "string",
					"enum":        []string{"1h", "6h", "1d", "7d", "30d", "1y"},
					"default":     "7d",
					"description": "Time period for data",
				},
				"resolution": map[string]any{
					"type":        "string",
					"enum":        []string{"1m", "5m", "1h", "1d"},
					"default":     "1h",
					"description": "Data resolution",
				},
			}, "device_id", "capability"),
		}, r.handleGetDeviceInsights},
		{Tool{
			Name:        "get_live_insights",
			Description: "Real-time dashboard data for monitoring",
			Parameters: object(map[string]any{
				"metrics": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{"total_power", "active_devices", "temp_avg", "humidity_avg", "online_devices", "energy_today"},
					},
					"default": []string{"total_power", "active_devices"},
				},
			}),
		}, r.handleGetLiveInsights},
	}
}

func (r *Registry) handleGetDeviceInsights(ctx context.Context, args Args) (*ToolResult, error) {
	id := args.String("device_id")
	capName := args.String("capability")
	period := args.StringOr("period", "7d")
	resolution := args.StringOr("resolution", "1h")

	device, err := r.backend.Devices.Get(ctx, id)
	if err != nil {
		var nf *homey.NotFoundError
		if errors.As(err, &nf) {
			return fail("%v", err), nil
		}
		return fail("Error getting device insights: %v", err), nil
	}
	if !device.HasCapability(capName) {
		return fail("Device %s doesn't have capability '%s'\nAvailable capabilities: %s",
			device.Name, capName, strings.Join(sortedCapabilities(device), ", ")), nil
	}

	logs, err := r.backend.Insights.Logs(ctx)
	if err != nil {
		return fail("Error getting device insights: %v", err), nil
	}
	log, found := logs[id+"."+capName]
	if !found {
		return fail("No insights log found for %s - %s\nThis capability might not have insights logging enabled.", device.Name, capName), nil
	}

	now := r.now()
	entries, err := r.backend.Insights.Entries(ctx, models.EntriesQuery{
		DeviceID:   id,
		Capability: capName,
		Resolution: resolution,
		From:       now.Add(-insightPeriods[period]),
		To:         now,
	})

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **%s - %s**\n\n", device.Name, capabilityTitle(capName))
	fmt.Fprintf(&b, "📅 **Period:** %s | **Resolution:** %s\n", period, resolution)

	live := device.CapabilityValue(capName)
	switch {
	case err != nil:
		r.log.Debugw("insights entries unavailable", "device", id, "capability", capName, "error", err)
		b.WriteString("📈 **Status:** Insights logging detected, historical data not accessible\n\n")
		b.WriteString("📍 **Current Values:**\n")
		writeValueLine(&b, "Live value", live, log.Units)
		writeValueLine(&b, "Last insights value", log.LastValue, log.Units)
		b.WriteString("\n💡 **Note:** While insights logging is enabled for this device, historical data entries are not accessible through the API. You can view historical charts in the Homey Web App under Insights.")
		return ok("%s", b.String()), nil

	case len(entries) == 0:
		b.WriteString("📈 **Status:** Insights logging enabled, no historical data available\n\n")
		b.WriteString("📍 **Current Values:**\n")
		writeValueLine(&b, "Live value", live, log.Units)
		if !reflect.DeepEqual(log.LastValue, live) {
			writeValueLine(&b, "Last logged", log.LastValue, log.Units)
		}
		b.WriteString("\n💡 **Note:** This device has insights logging enabled, but no historical entries are available for the requested period. This could mean:\n")
		b.WriteString("• Data retention period has expired\n")
		b.WriteString("• Logging was recently enabled\n")
		b.WriteString("• No data points were recorded in the selected timeframe\n")
		return ok("%s", b.String()), nil
	}

	fmt.Fprintf(&b, "📈 **Data Points:** %d\n\n", len(entries))
	writeEntryStats(&b, entries, log)
	return ok("%s", b.String()), nil
}

// writeValueLine writes "• label: value units", or nothing for a nil value.
func writeValueLine(b *strings.Builder, label string, v any, units string) {
	switch x := v.(type) {
	case nil:
	case bool:
		fmt.Fprintf(b, "• %s: %s\n", label, onOff(x))
	default:
		fmt.Fprintf(b, "• %s: %s %s\n", label, display(x), units)
	}
}

func writeEntryStats(b *strings.Builder, entries []models.LogEntry, log models.InsightsLog) {
	var (
		bools   []bool
		numbers []float64
		first   any
	)
	for _, e := range entries {
		switch v := e.V.(type) {
		case bool:
			bools = append(bools, v)
		case float64:
			numbers = append(numbers, v)
		default:
			continue
		}
		if first == nil {
			first = e.V
		}
	}
	if first == nil {
		return
	}

	switch first.(type) {
	case bool:
		on := 0
		for _, v := range bools {
			if v {
				on++
			}
		}
		pct := float64(on) / float64(len(bools)) * 100
		current, _ := entries[len(entries)-1].V.(bool)
		b.WriteString("🔘 **State Analysis:**\n")
		fmt.Fprintf(b, "• On/True: %d times (%.1f%%)\n", on, pct)
		fmt.Fprintf(b, "• Off/False: %d times (%.1f%%)\n", len(bools)-on, 100-pct)
		fmt.Fprintf(b, "• Current: %s\n", onOff(current))
	case float64:
		sum, lo, hi := 0.0, numbers[0], numbers[0]
		for _, v := range numbers {
			sum += v
			lo = min(lo, v)
			hi = max(hi, v)
		}
		b.WriteString("📈 **Statistics:**\n")
		fmt.Fprintf(b, "• Average: %s %s\n", decimals(sum/float64(len(numbers)), log.Decimals), log.Units)
		fmt.Fprintf(b, "• Minimum: %s %s\n", decimals(lo, log.Decimals), log.Units)
		fmt.Fprintf(b, "• Maximum: %s %s\n", decimals(hi, log.Decimals), log.Units)
		fmt.Fprintf(b, "• Current: %s %s\n", decimals(numbers[len(numbers)-1], log.Decimals), log.Units)
	}

	if len(entries) < 5 {
		return
	}
	b.WriteString("\n📉 **Recent Values:**\n")
	for i := len(entries) - 1; i >= len(entries)-5; i-- {
		e := entries[i]
		var value string
		switch v := e.V.(type) {
		case float64:
			value = decimals(v, log.Decimals) + " " + log.Units
		case bool:
			value = onOff(v)
		default:
			value = display(v)
		}
		fmt.Fprintf(b, "• %s: %s\n", e.T.UTC().Format("15:04"), value)
	}
}
