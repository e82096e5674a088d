package homey

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

func caps(pairs ...any) map[string]models.CapabilityState {
	out := make(map[string]models.CapabilityState, len(pairs)/3)
	for i := 0; i+2 < len(pairs); i += 3 {
		out[pairs[i].(string)] = models.CapabilityState{Value: pairs[i+1], Title: pairs[i+2].(string)}
	}
	return out
}

// demoDevices returns a fresh copy of the demo fixture on every call.
func demoDevices() map[string]models.Device {
	return map[string]models.Device{
		"light1": {
			ID: "light1", Name: "Living Room Lamp", Class: "light", Zone: "Living Room", Available: true,
			Capabilities: caps(
				"onoff", false, "On/Off",
				"dim", 0.8, "Brightness",
				"light_hue", 0.2, "Color",
				"light_saturation", 0.9, "Saturation",
				"light_temperature", 0.5, "Color Temperature",
				"light_mode", "color", "Mode",
			),
		},
		"light2": {
			ID: "light2", Name: "Kitchen Spots", Class: "light", Zone: "Kitchen", Available: true,
			Capabilities: caps(
				"onoff", true, "On/Off",
				"dim", 0.6, "Brightness",
				"light_temperature", 0.3, "Color Temperature",
			),
		},
		"sensor1": {
			ID: "sensor1", Name: "Temperature Sensor", Class: "sensor", Zone: "Bedroom", Available: true,
			Capabilities: caps(
				"measure_temperature", 21.5, "Temperature",
				"measure_humidity", 65.2, "Humidity",
				"measure_battery", 85.0, "Battery",
				"alarm_battery", false, "Battery Low",
			),
		},
		"thermostat1": {
			ID: "thermostat1", Name: "Living Room Thermostat", Class: "thermostat", Zone: "Living Room", Available: true,
			Capabilities: caps(
				"target_temperature", 20.0, "Target Temperature",
				"measure_temperature", 19.2, "Current Temperature",
				"measure_battery", 92.0, "Battery",
			),
		},
		"socket1": {
			ID: "socket1", Name: "Desk Socket", Class: "socket", Zone: "Office", Available: true,
			Capabilities: caps(
				"onoff", true, "On/Off",
				"measure_power", 45.2, "Power",
				"meter_power", 2.34, "Energy",
			),
		},
	}
}

func demoFlows() map[string]models.Flow {
	return map[string]models.Flow{
		"flow1": {ID: "flow1", Name: "Good Morning Routine", Enabled: true},
		"flow2": {ID: "flow2", Name: "Evening Routine", Enabled: true},
	}
}

func demoLogs() map[string]models.InsightsLog {
	return map[string]models.InsightsLog{
		"light1.onoff": {
			ID: "onoff", URI: "homey:device:light1", Name: "Living Room Lamp - On/Off",
			Type: "boolean", Units: "", Decimals: 0,
		},
		"light1.dim": {
			ID: "dim", URI: "homey:device:light1", Name: "Living Room Lamp - Brightness",
			Type: "number", Units: "%", Decimals: 1,
		},
		"sensor1.measure_temperature": {
			ID: "measure_temperature", URI: "homey:device:sensor1", Name: "Temperature Sensor - Temperature",
			Type: "number", Units: "°C", Decimals: 1,
		},
		"socket1.measure_power": {
			ID: "measure_power", URI: "homey:device:socket1", Name: "Desk Socket - Power",
			Type: "number", Units: "W", Decimals: 1,
		},
	}
}

// demoEntries yields 24 hourly points for resolution 1h and 168 daily points
// otherwise, oldest first.
func (i *InsightsAPI) demoEntries(q models.EntriesQuery) []models.LogEntry {
	n, step := 24, time.Hour
	if q.Resolution != "1h" {
		n, step = 7*24, 24*time.Hour
	}
	now := i.c.now()
	rng := i.c.rng

	entries := make([]models.LogEntry, 0, n)
	for k := n - 1; k >= 0; k-- {
		var v any
		switch name := q.Capability; {
		case strings.Contains(name, "temperature"):
			v = round(rng.uniform(18, 24), 1)
		case strings.Contains(name, "dim"):
			v = round(rng.uniform(0, 1), 2)
		case strings.Contains(name, "power"):
			v = round(rng.uniform(10, 100), 1)
		case strings.Contains(name, "onoff"):
			v = rng.coin()
		default:
			v = round(rng.uniform(0, 100), 1)
		}
		entries = append(entries, models.LogEntry{T: now.Add(-time.Duration(k) * step), V: v})
	}
	return entries
}

func (e *EnergyAPI) demoLive() models.LiveReport {
	rng := e.c.rng
	return models.LiveReport{
		Electricity: &models.LiveUtility{
			Total: round(rng.uniform(500, 2000), 1),
			Devices: []models.LiveDevice{
				{ID: "device1", Name: "Washing Machine", Value: round(rng.uniform(100, 500), 1)},
				{ID: "device2", Name: "Refrigerator", Value: round(rng.uniform(50, 150), 1)},
				{ID: "device3", Name: "TV", Value: round(rng.uniform(20, 80), 1)},
			},
		},
		Gas:   &models.LiveUtility{Total: round(rng.uniform(0, 20), 1)},
		Water: &models.LiveUtility{Total: round(rng.uniform(0, 5), 1)},
	}
}

type bounds [2]float64

type usageRange struct {
	consumed, produced, cost bounds
}

type reportRange struct {
	electricity, gas, water usageRange
}

var demoReportRanges = map[models.ReportPeriod]reportRange{
	models.PeriodHour: {
		electricity: usageRange{bounds{0.5, 3}, bounds{0, 1}, bounds{0.15, 0.9}},
		gas:         usageRange{consumed: bounds{0.2, 2}, cost: bounds{0.25, 2.4}},
		water:       usageRange{consumed: bounds{5, 25}, cost: bounds{0.01, 0.06}},
	},
	models.PeriodDay: {
		electricity: usageRange{bounds{15, 35}, bounds{0, 10}, bounds{4, 12}},
		gas:         usageRange{consumed: bounds{5, 25}, cost: bounds{6, 30}},
		water:       usageRange{consumed: bounds{100, 300}, cost: bounds{0.25, 0.75}},
	},
	models.PeriodWeek: {
		electricity: usageRange{bounds{100, 250}, bounds{0, 70}, bounds{30, 80}},
		gas:         usageRange{consumed: bounds{35, 175}, cost: bounds{42, 210}},
		water:       usageRange{consumed: bounds{700, 2100}, cost: bounds{1.75, 5.25}},
	},
	models.PeriodMonth: {
		electricity: usageRange{bounds{400, 1000}, bounds{0, 300}, bounds{120, 320}},
		gas:         usageRange{consumed: bounds{150, 750}, cost: bounds{180, 900}},
		water:       usageRange{consumed: bounds{3000, 9000}, cost: bounds{7.5, 22.5}},
	},
	models.PeriodYear: {
		electricity: usageRange{bounds{4800, 12000}, bounds{0, 3600}, bounds{1440, 3840}},
		gas:         usageRange{consumed: bounds{1800, 9000}, cost: bounds{2160, 10800}},
		water:       usageRange{consumed: bounds{36000, 108000}, cost: bounds{90, 270}},
	},
}

func (e *EnergyAPI) demoReport(period models.ReportPeriod, key string) models.EnergyReport {
	r := demoReportRanges[period]
	rng := e.c.rng
	draw := func(s bounds, places int) float64 { return round(rng.uniform(s[0], s[1]), places) }

	return models.EnergyReport{
		Period: period,
		Key:    key,
		Electricity: &models.Usage{
			Consumed: draw(r.electricity.consumed, 2),
			Produced: draw(r.electricity.produced, 2),
			Cost:     draw(r.electricity.cost, 2),
		},
		Gas:   &models.Usage{Consumed: draw(r.gas.consumed, 2), Cost: draw(r.gas.cost, 2)},
		Water: &models.Usage{Consumed: draw(r.water.consumed, 1), Cost: draw(r.water.cost, 2)},
	}
}

func demoReportsAvailable(today time.Time) models.ReportsAvailable {
	out := models.ReportsAvailable{
		Days:   make([]string, 0, 30),
		Weeks:  make([]string, 0, 12),
		Months: make([]string, 0, 12),
	}
	for i := 0; i < 30; i++ {
		out.Days = append(out.Days, today.AddDate(0, 0, -i).Format(time.DateOnly))
	}
	for i := 0; i < 12; i++ {
		year, week := today.AddDate(0, 0, -7*i).ISOWeek()
		out.Weeks = append(out.Weeks, fmt.Sprintf("%d-W%02d", year, week))
		out.Months = append(out.Months, today.AddDate(0, 0, -30*i).Format("2006-01"))
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
