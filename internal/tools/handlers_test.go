package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/homey"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/tools"
)

func homeDevices() *fakeDevices {
	return &fakeDevices{devices: map[string]models.Device{
		"l1": device("l1", "Hall Lamp", "light", "Hallway", map[string]any{"onoff": false, "dim": 0.3, "light_temperature": 0.5}),
		"l2": device("l2", "Hall Strip", "light", "Hallway", map[string]any{"onoff": true, "light_hue": 0.1, "light_saturation": 0.2, "light_mode": "temperature", "dim": 1.0}),
		"l3": device("l3", "Desk Light", "light", "Office", map[string]any{"onoff": true}),
		"t1": device("t1", "Thermostat", "thermostat", "Hallway", map[string]any{"target_temperature": 19.0, "measure_temperature": 18.5}),
		"s1": device("s1", "Climate Sensor", "sensor", "Office", map[string]any{
			"measure_temperature": 21.5, "measure_humidity": 40.0, "measure_power": 12.0, "alarm_water": true, "alarm_battery": false,
		}),
	}}
}

func TestControlLightsInZone(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		fail       map[string]error
		wantLines  []string
		wantWrites []capabilityWrite
	}{
		{
			name:      "on with brightness and temperature",
			args:      map[string]any{"zone_name": "hall", "action": "on", "brightness": 1, "color_temperature": 20},
			wantLines: []string{"✅ Hall Lamp: turned on (1%) (temp: 20%)", "✅ Hall Strip: turned on (1%)"},
			wantWrites: []capabilityWrite{
				{"l1", "dim", 0.01}, {"l1", "onoff", true}, {"l1", "light_temperature", 0.2},
				{"l2", "dim", 0.01}, {"l2", "onoff", true},
			},
		},
		{
			name:       "toggle flips each light",
			args:       map[string]any{"zone_name": "Hallway", "action": "toggle"},
			wantLines:  []string{"✅ Hall Lamp: turned on", "✅ Hall Strip: turned off"},
			wantWrites: []capabilityWrite{{"l1", "onoff", true}, {"l2", "onoff", false}},
		},
		{
			name:       "continues past a failing light",
			args:       map[string]any{"zone_name": "Hallway", "action": "off"},
			fail:       map[string]error{"l1": errors.New("hub returned status 500")},
			wantLines:  []string{"❌ Hall Lamp: error - hub returned status 500", "✅ Hall Strip: turned off"},
			wantWrites: []capabilityWrite{{"l2", "onoff", false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devs := homeDevices()
			devs.fail = tt.fail
			r := newRegistry(t, tools.Backend{Devices: devs})

			res := execute(t, r, "control_lights_in_zone", tt.args)
			require.True(t, res.Success, res.Text())
			_, body, _ := strings.Cut(res.Text(), "\n\n")
			assert.Equal(t, tt.wantLines, strings.Split(body, "\n"))
			assert.Equal(t, tt.wantWrites, devs.Writes())
		})
	}
}

func TestControlLightsInZone_NoLights(t *testing.T) {
	r := newRegistry(t, tools.Backend{Devices: homeDevices()})
	res := execute(t, r, "control_lights_in_zone", map[string]any{"zone_name": "Garage", "action": "on"})
	assert.True(t, res.Success)
	assert.Equal(t, "No lights found in zone 'Garage'", res.Text())
}

func TestSetLightColor(t *testing.T) {
	devs := homeDevices()
	r := newRegistry(t, tools.Backend{Devices: devs})

	res := execute(t, r, "set_light_color", map[string]any{"device_id": "l2", "hue": 180, "saturation": 50, "brightness": 70})
	require.True(t, res.Success, res.Text())
	assert.Equal(t, "✅ Light 'Hall Strip' color set (hue: 180°, saturation: 50%, brightness: 70%)", res.Text())
	assert.Equal(t, []capabilityWrite{
		{"l2", "light_mode", "color"}, {"l2", "light_hue", 0.5}, {"l2", "light_saturation", 0.5},
		{"l2", "dim", 0.7}, {"l2", "onoff", true},
	}, devs.Writes())

	res = execute(t, r, "set_light_color", map[string]any{"device_id": "l1", "hue": 10, "saturation": 10})
	assert.Equal(t, "❌ Light 'Hall Lamp' has no color support (missing: light_hue, light_saturation)", res.Text())

	res = execute(t, r, "set_light_color", map[string]any{"device_id": "t1", "hue": 10, "saturation": 10})
	assert.Equal(t, "❌ Device 'Thermostat' is not a light (class: thermostat)", res.Text())

	res = execute(t, r, "set_light_color", map[string]any{"device_id": "ghost", "hue": 10, "saturation": 10})
	assert.Equal(t, "❌ Error setting light color: Device ghost not found", res.Text())
}

func TestSetThermostatTemperature(t *testing.T) {
	devs := homeDevices()
	r := newRegistry(t, tools.Backend{Devices: devs})

	res := execute(t, r, "set_thermostat_temperature", map[string]any{"device_id": "t1", "temperature": 21.5})
	assert.Equal(t, "✅ Thermostat 'Thermostat' set to 21.5°C (current: 18.5°C)", res.Text())
	assert.Equal(t, []capabilityWrite{{"t1", "target_temperature", 21.5}}, devs.Writes())

	res = execute(t, r, "set_thermostat_temperature", map[string]any{"device_id": "l1", "temperature": 20})
	assert.Equal(t, "❌ Device 'Hall Lamp' is not a thermostat (class: light)", res.Text())
}

func TestGetSensorReadings(t *testing.T) {
	r := newRegistry(t, tools.Backend{Devices: homeDevices()})

	res := execute(t, r, "get_sensor_readings", map[string]any{"zone_name": "office"})
	assert.Equal(t, strings.Join([]string{
		"Sensor readings in 'office':",
		"",
		"📊 Climate Sensor (sensor):",
		"  • alarm_battery: ✅ OK",
		"  • alarm_water: 🚨 ACTIVE",
		"  • measure_humidity: 40%",
		"  • measure_power: 12W",
		"  • measure_temperature: 21.5°C",
	}, "\n"), res.Text())

	res = execute(t, r, "get_sensor_readings", map[string]any{"zone_name": "office", "sensor_type": "humidity"})
	assert.Contains(t, res.Text(), "measure_humidity: 40%")
	assert.NotContains(t, res.Text(), "measure_power")

	res = execute(t, r, "get_sensor_readings", map[string]any{"zone_name": "Hallway", "sensor_type": "battery"})
	assert.Equal(t, "No sensors found in zone 'Hallway'", res.Text())
}

func TestDeviceListings(t *testing.T) {
	devs := homeDevices()
	r := newRegistry(t, tools.Backend{Devices: devs})

	res := execute(t, r, "get_devices", nil)
	assert.True(t, strings.HasPrefix(res.Text(), "Found 5 devices:\n\n["), res.Text())
	assert.Contains(t, res.Text(), `"zone": "Hallway"`)

	res = execute(t, r, "find_devices_by_zone", map[string]any{"zone_name": "HALL", "device_class": "light"})
	assert.True(t, strings.HasPrefix(res.Text(), "Found 2 devices in 'HALL':"), res.Text())
	assert.NotContains(t, res.Text(), "Thermostat")

	res = execute(t, r, "get_device_status", map[string]any{"device_id": "t1"})
	assert.True(t, strings.HasPrefix(res.Text(), "Status of 'Thermostat':"), res.Text())
	assert.Contains(t, res.Text(), `"title": "measure_temperature"`)

	res = execute(t, r, "control_device", map[string]any{"device_id": "l1", "capability": "dim", "value": 50})
	assert.Equal(t, "✅ Device 'Hall Lamp' capability 'dim' set to '50'", res.Text())

	res = execute(t, r, "control_device", map[string]any{"device_id": "nope", "capability": "onoff", "value": true})
	assert.Equal(t, "❌ Error controlling device: Device nope not found", res.Text())
}

type fakeFlows struct {
	flows     map[string]models.Flow
	err       error
	triggered []string
}

func (f *fakeFlows) List(context.Context) (map[string]models.Flow, error) { return f.flows, nil }

func (f *fakeFlows) Trigger(_ context.Context, id string) error {
	f.triggered = append(f.triggered, id)
	return f.err
}

func TestFlowTools(t *testing.T) {
	flows := &fakeFlows{flows: map[string]models.Flow{
		"f1": {ID: "f1", Name: "Good Morning", Enabled: true},
		"f2": {ID: "f2", Name: "Good Night", Enabled: false, Broken: true},
	}}
	r := newRegistry(t, tools.Backend{Flows: flows})

	res := execute(t, r, "trigger_flow", map[string]any{"flow_id": "f1"})
	assert.Equal(t, "✅ Flow 'Good Morning' started successfully", res.Text())
	assert.Equal(t, []string{"f1"}, flows.triggered)

	res = execute(t, r, "trigger_flow", map[string]any{"flow_id": "f9"})
	assert.Equal(t, "❌ Flow with ID 'f9' not found", res.Text())

	flows.err = homey.ErrVariantsExhausted
	res = execute(t, r, "trigger_flow", map[string]any{"flow_id": "f2"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Text(), "Could not start flow 'Good Night'")

	res = execute(t, r, "find_flow_by_name", map[string]any{"flow_name": "night"})
	assert.True(t, strings.HasPrefix(res.Text(), "Found 1 flows matching 'night':"), res.Text())
	assert.Contains(t, res.Text(), `"broken": true`)

	res = execute(t, r, "find_flow_by_name", map[string]any{"flow_name": "party"})
	assert.Equal(t, "No flows found with name 'party'", res.Text())

	res = execute(t, r, "get_flows", nil)
	assert.True(t, strings.HasPrefix(res.Text(), "Found 2 flows:"), res.Text())
}

type fakeInsights struct {
	logs    map[string]models.InsightsLog
	entries map[string][]models.LogEntry
	err     error
	storage models.StorageInfo
	queries []models.EntriesQuery
}

func (f *fakeInsights) Logs(context.Context) (map[string]models.InsightsLog, error) {
	return f.logs, nil
}

func (f *fakeInsights) Entries(_ context.Context, q models.EntriesQuery) ([]models.LogEntry, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[q.DeviceID+"."+q.Capability], nil
}

func (f *fakeInsights) Storage(context.Context) (models.StorageInfo, error) {
	return f.storage, nil
}

func points(start time.Time, values ...any) []models.LogEntry {
	out := make([]models.LogEntry, len(values))
	for i, v := range values {
		out[i] = models.LogEntry{T: start.Add(time.Duration(i) * time.Hour), V: v}
	}
	return out
}

func TestGetDeviceInsights(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-5 * time.Hour)
	insights := &fakeInsights{
		logs: map[string]models.InsightsLog{
			"s1.measure_temperature": {ID: "measure_temperature", Units: "°C", Decimals: 1, LastValue: 21.0},
			"l1.onoff":               {ID: "onoff", LastValue: false},
		},
		entries: map[string][]models.LogEntry{
			"s1.measure_temperature": points(start, 20.0, 21.0, nil, 22.0, 23.0, 24.0),
			"l1.onoff":               points(start, true, false, true, true),
		},
	}
	r := newRegistry(t, tools.Backend{Devices: homeDevices(), Insights: insights}, tools.WithClock(func() time.Time { return now }))

	res := execute(t, r, "get_device_insights", map[string]any{"device_id": "s1", "capability": "measure_temperature", "period": "1d"})
	require.True(t, res.Success, res.Text())
	assert.Equal(t, strings.Join([]string{
		"📊 **Climate Sensor - Measure Temperature**",
		"",
		"📅 **Period:** 1d | **Resolution:** 1h",
		"📈 **Data Points:** 6",
		"",
		"📈 **Statistics:**",
		"• Average: 22.0 °C",
		"• Minimum: 20.0 °C",
		"• Maximum: 24.0 °C",
		"• Current: 24.0 °C",
		"",
		"📉 **Recent Values:**",
		"• 12:00: 24.0 °C",
		"• 11:00: 23.0 °C",
		"• 10:00: 22.0 °C",
		"• 09:00: None",
		"• 08:00: 21.0 °C",
		"",
	}, "\n"), res.Text())
	require.Len(t, insights.queries, 1)
	assert.Equal(t, now.Add(-24*time.Hour), insights.queries[0].From)
	assert.Equal(t, now, insights.queries[0].To)

	res = execute(t, r, "get_device_insights", map[string]any{"device_id": "l1", "capability": "onoff"})
	assert.Contains(t, res.Text(), "• On/True: 3 times (75.0%)\n• Off/False: 1 times (25.0%)\n• Current: On\n")
	assert.NotContains(t, res.Text(), "Recent Values")
	assert.Contains(t, res.Text(), "**Period:** 7d | **Resolution:** 1h")
}

func TestGetDeviceInsights_Fallbacks(t *testing.T) {
	insights := &fakeInsights{logs: map[string]models.InsightsLog{
		"s1.measure_temperature": {ID: "measure_temperature", Units: "°C", LastValue: 20.0},
	}}
	r := newRegistry(t, tools.Backend{Devices: homeDevices(), Insights: insights})
	args := map[string]any{"device_id": "s1", "capability": "measure_temperature"}

	res := execute(t, r, "get_device_insights", args)
	assert.Contains(t, res.Text(), "no historical data available")
	assert.Contains(t, res.Text(), "• Live value: 21.5 °C\n• Last logged: 20 °C\n")

	insights.err = errors.New("hub returned status 404")
	res = execute(t, r, "get_device_insights", args)
	assert.Contains(t, res.Text(), "historical data not accessible")
	assert.Contains(t, res.Text(), "• Last insights value: 20 °C\n")
	assert.Contains(t, res.Text(), "Homey Web App")

	res = execute(t, r, "get_device_insights", map[string]any{"device_id": "s1", "capability": "dim"})
	assert.True(t, strings.HasPrefix(res.Text(), "❌ Device Climate Sensor doesn't have capability 'dim'"), res.Text())

	res = execute(t, r, "get_device_insights", map[string]any{"device_id": "s1", "capability": "measure_power"})
	assert.True(t, strings.HasPrefix(res.Text(), "❌ No insights log found for Climate Sensor - measure_power"), res.Text())

	res = execute(t, r, "get_device_insights", map[string]any{"device_id": "zz", "capability": "onoff"})
	assert.Equal(t, "❌ Device zz not found", res.Text())
}

func TestGetLiveInsights(t *testing.T) {
	now := time.Date(2025, 5, 1, 14, 30, 5, 0, time.UTC)
	insights := &fakeInsights{
		logs: map[string]models.InsightsLog{
			"m1.meter_power":         {ID: "meter_power"},
			"m2.meter_power":         {ID: "meter_power"},
			"s1.measure_temperature": {ID: "measure_temperature"},
		},
		entries: map[string][]models.LogEntry{
			"m1.meter_power": points(now.Add(-10*time.Hour), 100.0, 101.5, 103.0),
			"m2.meter_power": points(now.Add(-10*time.Hour), 50.0, 40.0),
		},
		storage: models.StorageInfo{Used: 50 << 20, Total: 200 << 20, Entries: 1234567},
	}
	r := newRegistry(t, tools.Backend{Devices: homeDevices(), Insights: insights}, tools.WithClock(func() time.Time { return now }))

	res := execute(t, r, "get_live_insights", map[string]any{
		"metrics": []string{"total_power", "active_devices", "temp_avg", "humidity_avg", "online_devices", "energy_today"},
	})
	assert.Equal(t, strings.Join([]string{
		"📊 **Live Dashboard - 14:30:05**",
		"",
		"⚡ **Total Power:** 12.0W (1 devices)",
		"📱 **Active Devices:** 2/5",
		"🌡️ **Avg Temperature:** 20.0°C (2 sensors)",
		"💧 **Avg Humidity:** 40.0% (1 sensors)",
		"📶 **Online Devices:** 5/5",
		"🔋 **Energy Today:** 3.0 kWh (1 meters)",
		"",
		"💾 **Insights Storage:** 50.0MB / 200.0MB (25.0%)",
		"📈 **Log Entries:** 1,234,567",
		"",
		"🔄 *Real-time data from Homey Pro*",
	}, "\n"), res.Text())

	midnight := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, q := range insights.queries {
		assert.Equal(t, midnight, q.From)
		assert.Equal(t, "meter_power", q.Capability)
	}

	res = execute(t, r, "get_live_insights", nil)
	assert.Contains(t, res.Text(), "⚡ **Total Power:**")
	assert.NotContains(t, res.Text(), "Avg Temperature")
}

type fakeEnergy struct {
	live      models.LiveReport
	liveErr   error
	reports   map[models.ReportPeriod]models.EnergyReport
	reportErr error
	requested []string
	currency  string
}

func (f *fakeEnergy) State(context.Context) (models.EnergyState, error) {
	return models.EnergyState{Available: true}, nil
}

func (f *fakeEnergy) Live(context.Context, string) (models.LiveReport, error) {
	return f.live, f.liveErr
}

func (f *fakeEnergy) Report(_ context.Context, p models.ReportPeriod, key, cacheMode string) (models.EnergyReport, error) {
	f.requested = append(f.requested, string(p)+"="+key+"/"+cacheMode)
	if f.reportErr != nil {
		return models.EnergyReport{}, f.reportErr
	}
	return f.reports[p], nil
}

func (f *fakeEnergy) Currency(context.Context) (models.Currency, error) {
	return models.Currency{Currency: "USD", Symbol: f.currency}, nil
}

func TestGetEnergyInsights(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	energy := &fakeEnergy{
		currency: "$",
		live: models.LiveReport{
			Electricity: &models.LiveUtility{Total: 1800, Devices: []models.LiveDevice{
				{Name: "Heater", Value: 1200}, {Name: "Fridge", Value: 150}, {Name: "TV", Value: 90},
			}},
			Gas: &models.LiveUtility{Total: 0},
		},
		reports: map[models.ReportPeriod]models.EnergyReport{
			models.PeriodWeek: {
				Electricity: &models.Usage{Consumed: 70, Produced: 3.25, Cost: 21.5},
				Water:       &models.Usage{Consumed: 812.6, Cost: 1.2},
			},
		},
	}
	r := newRegistry(t, tools.Backend{Energy: energy}, tools.WithClock(func() time.Time { return now }))

	res := execute(t, r, "get_energy_insights", map[string]any{"device_filter": []string{"heat", "tv"}})
	assert.Equal(t, strings.Join([]string{
		"🔋 **Energy Insights - 7d**",
		"",
		"⚡ **Current Power Usage:**",
		"• Total: 1800W",
		"• Top consumers:",
		"  1. Heater: 1200W",
		"  2. TV: 90W",
		"",
		"📊 **This Week's Consumption:**",
		"• Electricity: 70.0 kWh (produced: 3.2 kWh) - $21.50",
		"  Average per day: 10.0 kWh",
		"• Water: 813 L - $1.20",
		"",
		"💡 **Energy Tips:**",
		"• High power usage (1800W) - check for energy-hungry devices",
		"",
		"🔄 *Real-time data from Homey Energy Manager*",
	}, "\n"), res.Text())
	assert.Equal(t, []string{"week=2025-W11/"}, energy.requested)

	energy.liveErr = errors.New("unreachable")
	energy.reportErr = errors.New("unreachable")
	res = execute(t, r, "get_energy_insights", map[string]any{"period": "30d"})
	assert.Equal(t, "🔋 **Energy Insights - 30d**\n\n⚠️ Historical energy reports not available\n\n🔄 *Real-time data from Homey Energy Manager*", res.Text())
}

func TestEnergyReports(t *testing.T) {
	energy := &fakeEnergy{reports: map[models.ReportPeriod]models.EnergyReport{
		models.PeriodHour: {Electricity: &models.Usage{Consumed: 0.42, Cost: 0.11}},
		models.PeriodYear: {
			Electricity: &models.Usage{Consumed: 4250.5, Produced: 1200, Cost: 1275.25},
			Gas:         &models.Usage{Consumed: 0, Cost: 0},
		},
	}}
	r := newRegistry(t, tools.Backend{Energy: energy})

	res := execute(t, r, "get_energy_report_hourly", map[string]any{"date_hour": "2025-01-15-14", "cache": "refresh"})
	assert.Equal(t, "⏰ **Hourly Energy Report - 2025-01-15-14**\n\n"+
		"⚡ **Electricity:**\n  • Consumed: 0.42 kWh\n  • Produced: 0 kWh\n  • Cost: €0.11\n\n"+
		"\n🔄 *Data from Homey Energy Manager*", res.Text())

	res = execute(t, r, "get_energy_report_yearly", map[string]any{"year": "2024"})
	assert.Equal(t, "📅 **Yearly Energy Report - 2024**\n\n"+
		"⚡ **Electricity:**\n  • Consumed: 4,250.5 kWh\n  • Produced: 1,200.0 kWh\n  • Cost: €1,275.25\n  • Monthly average: 354.2 kWh\n\n"+
		"🔥 **Gas:**\n  • Consumed: 0.0 m³\n  • Cost: €0.00\n\n"+
		"\n🔄 *Data from Homey Energy Manager*", res.Text())

	assert.Equal(t, []string{"hour=2025-01-15-14/refresh", "year=2024/"}, energy.requested)

	energy.reportErr = errors.New("boom")
	res = execute(t, r, "get_energy_report_yearly", map[string]any{"year": "2024"})
	assert.Equal(t, "❌ Error getting yearly energy report: boom", res.Text())
}

type fakeDiagnostics map[string]bool

func (f fakeDiagnostics) TestEndpoints(context.Context) (map[string]bool, error) { return f, nil }

func TestTestEndpoints(t *testing.T) {
	r := newRegistry(t, tools.Backend{Diagnostics: fakeDiagnostics{"/api/manager/system": true, "/api/manager/energy/live": false}})
	res := execute(t, r, "test_endpoints", nil)
	assert.Equal(t, "🔍 **Endpoint check:** 1/2 reachable\n\n❌ /api/manager/energy/live\n✅ /api/manager/system", res.Text())

	r = newRegistry(t, tools.Backend{Diagnostics: fakeDiagnostics{"demo_mode": true}})
	res = execute(t, r, "test_endpoints", nil)
	assert.Contains(t, res.Text(), "Demo mode")
}
