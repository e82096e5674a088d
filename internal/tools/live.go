package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

const megabyte = 1024 * 1024

func (r *Registry) handleGetLiveInsights(ctx context.Context, args Args) (*ToolResult, error) {
	metrics := args.Strings("metrics", "total_power", "active_devices")
	now := r.now()

	devices, err := r.backend.Devices.List(ctx)
	if err != nil {
		return fail("Error getting live insights: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Live Dashboard - %s**\n\n", now.Format(time.TimeOnly))

	for _, metric := range metrics {
		switch metric {
		case "total_power":
			total, n := sumPositive(devices, "measure_power")
			fmt.Fprintf(&b, "⚡ **Total Power:** %.1fW", total)
			if n > 0 {
				fmt.Fprintf(&b, " (%d devices)\n", n)
			} else {
				b.WriteString(" (No power monitoring devices found)\n")
			}
		case "active_devices":
			fmt.Fprintf(&b, "📱 **Active Devices:** %d/%d\n", countActive(devices), len(devices))
		case "temp_avg":
			if total, n := sumPositive(devices, "measure_temperature"); n > 0 {
				fmt.Fprintf(&b, "🌡️ **Avg Temperature:** %.1f°C (%d sensors)\n", total/float64(n), n)
			} else {
				b.WriteString("🌡️ **Avg Temperature:** No sensors found\n")
			}
		case "humidity_avg":
			if total, n := sumPositive(devices, "measure_humidity"); n > 0 {
				fmt.Fprintf(&b, "💧 **Avg Humidity:** %.1f%% (%d sensors)\n", total/float64(n), n)
			} else {
				b.WriteString("💧 **Avg Humidity:** No sensors found\n")
			}
		case "online_devices":
			online := 0
			for _, d := range devices {
				if d.Available {
					online++
				}
			}
			fmt.Fprintf(&b, "📶 **Online Devices:** %d/%d\n", online, len(devices))
		case "energy_today":
			total, meters, err := r.energyToday(ctx, now)
			if err != nil {
				return fail("Error getting live insights: %v", err), nil
			}
			if meters > 0 {
				fmt.Fprintf(&b, "🔋 **Energy Today:** %.1f kWh (%d meters)\n", total, meters)
			} else {
				b.WriteString("🔋 **Energy Today:** No energy meters found\n")
			}
		}
	}

	if storage, err := r.backend.Insights.Storage(ctx); err != nil {
		r.log.Debugw("insights storage unavailable", "error", err)
	} else {
		used := float64(storage.Used) / megabyte
		total := float64(storage.Total) / megabyte
		pct := 0.0
		if total > 0 {
			pct = used / total * 100
		}
		fmt.Fprintf(&b, "\n💾 **Insights Storage:** %.1fMB / %.1fMB (%.1f%%)\n", used, total, pct)
		fmt.Fprintf(&b, "📈 **Log Entries:** %s\n", count(storage.Entries))
	}

	b.WriteString("\n🔄 *Real-time data from Homey Pro*")
	return ok("%s", b.String()), nil
}

// sumPositive adds the non-zero numeric values of capName across devices.
func sumPositive(devices map[string]models.Device, capName string) (float64, int) {
	var (
		total float64
		n     int
	)
	for _, d := range devices {
		if v, ok := d.CapabilityValue(capName).(float64); ok && v != 0 {
			total += v
			n++
		}
	}
	return total, n
}

// countActive counts devices that are on, or dimmed above zero when they have
// no onoff capability.
func countActive(devices map[string]models.Device) int {
	active := 0
	for _, d := range devices {
		switch {
		case d.HasCapability("onoff"):
			if on, _ := d.CapabilityValue("onoff").(bool); on {
				active++
			}
		case d.HasCapability("dim"):
			if dim, _ := d.CapabilityValue("dim").(float64); dim > 0 {
				active++
			}
		}
	}
	return active
}

// energyToday sums the meter_power growth of every meter since local
// midnight. Meters with fewer than two points or a negative delta are
// skipped.
func (r *Registry) energyToday(ctx context.Context, now time.Time) (float64, int, error) {
	logs, err := r.backend.Insights.Logs(ctx)
	if err != nil {
		return 0, 0, err
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		total  float64
		meters int
	)
	for _, key := range sortedIDs(logs) {
		if logs[key].ID != "meter_power" {
			continue
		}
		deviceID := strings.TrimSuffix(key, ".meter_power")
		entries, err := r.backend.Insights.Entries(ctx, models.EntriesQuery{
			DeviceID:   deviceID,
			Capability: "meter_power",
			Resolution: "1h",
			From:       midnight,
			To:         now,
		})
		if err != nil {
			r.log.Debugw("meter entries unavailable", "log", key, "error", err)
			continue
		}
		if len(entries) < 2 {
			continue
		}
		first, ok1 := entries[0].V.(float64)
		last, ok2 := entries[len(entries)-1].V.(float64)
		if !ok1 || !ok2 || last < first {
			continue
		}
		total += last - first
		meters++
	}
	return total, meters, nil
}
