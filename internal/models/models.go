package models

import (
	"encoding/json"
	"time"
)

// CapabilityState is one capability value as reported by the hub.
type CapabilityState struct {
	Value any    `json:"value"`
	Title string `json:"title,omitempty"`
}

// Device mirrors the hub's device JSON. Capabilities keep the hub key name.
type Device struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Class        string                     `json:"class"`
	Zone         string                     `json:"zoneName"`
	Available    bool                       `json:"available"`
	Capabilities map[string]CapabilityState `json:"capabilitiesObj"`
}

// UnmarshalJSON treats a missing "available" as true.
func (d *Device) UnmarshalJSON(data []byte) error {
	type plain Device
	out := plain{Available: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*d = Device(out)
	return nil
}

// Clone returns a copy whose capability map can be mutated independently.
func (d Device) Clone() Device {
	caps := make(map[string]CapabilityState, len(d.Capabilities))
	for k, v := range d.Capabilities {
		caps[k] = v
	}
	d.Capabilities = caps
	return d
}

// HasCapability reports whether the device declares name.
func (d Device) HasCapability(name string) bool {
	_, ok := d.Capabilities[name]
	return ok
}

// CapabilityValue returns the current value of name, or nil.
func (d Device) CapabilityValue(name string) any {
	return d.Capabilities[name].Value
}

type Flow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Broken  bool   `json:"broken"`
}

// UnmarshalJSON treats a missing "enabled" as true.
func (f *Flow) UnmarshalJSON(data []byte) error {
	type plain Flow
	out := plain{Enabled: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*f = Flow(out)
	return nil
}

// InsightsLog is the flattened view of one hub insights log, keyed by
// "{deviceId}.{capability}".
type InsightsLog struct {
	ID        string `json:"id"`
	FullID    string `json:"full_id,omitempty"`
	URI       string `json:"uri"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Units     string `json:"units"`
	Decimals  int    `json:"decimals"`
	LastValue any    `json:"lastValue,omitempty"`
}

// LogEntry is one point of an insights time series.
type LogEntry struct {
	T time.Time `json:"t"`
	V any       `json:"v"`
}

// EntriesQuery selects the insights entries of one device capability.
type EntriesQuery struct {
	DeviceID   string
	Capability string
	Resolution string
	From       time.Time
	To         time.Time
}

type InsightsState struct {
	Enabled bool         `json:"enabled"`
	Version string       `json:"version,omitempty"`
	Storage *StorageInfo `json:"storage,omitempty"`
}

type StorageInfo struct {
	Used    int64 `json:"used"`
	Total   int64 `json:"total"`
	Entries int64 `json:"entries"`
	Logs    int64 `json:"logs"`
}

type EnergyState struct {
	Available             bool    `json:"available"`
	Currency              string  `json:"currency,omitempty"`
	ElectricityPriceFixed float64 `json:"electricityPriceFixed,omitempty"`
	GasPriceFixed         float64 `json:"gasPriceFixed,omitempty"`
	WaterPriceFixed       float64 `json:"waterPriceFixed,omitempty"`
}

type Currency struct {
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`
}

type LiveDevice struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type LiveUtility struct {
	Total   float64      `json:"total"`
	Devices []LiveDevice `json:"devices,omitempty"`
}

// LiveReport is the current usage per utility. Absent utilities are nil.
type LiveReport struct {
	Electricity *LiveUtility `json:"electricity,omitempty"`
	Gas         *LiveUtility `json:"gas,omitempty"`
	Water       *LiveUtility `json:"water,omitempty"`
}

type Usage struct {
	Consumed float64 `json:"consumed"`
	Produced float64 `json:"produced,omitempty"`
	Cost     float64 `json:"cost"`
}

// ReportPeriod names a hub energy report granularity.
type ReportPeriod string

const (
	PeriodHour  ReportPeriod = "hour"
	PeriodDay   ReportPeriod = "day"
	PeriodWeek  ReportPeriod = "week"
	PeriodMonth ReportPeriod = "month"
	PeriodYear  ReportPeriod = "year"
)

// QueryKey is the query parameter the hub expects for the period key.
func (p ReportPeriod) QueryKey() string {
	switch p {
	case PeriodDay:
		return "date"
	case PeriodWeek:
		return "isoWeek"
	case PeriodMonth:
		return "yearMonth"
	default:
		return string(p)
	}
}

// EnergyReport is one consumption report. Key holds the requested date,
// ISO week, month, year or hour.
type EnergyReport struct {
	Period      ReportPeriod `json:"-"`
	Key         string       `json:"-"`
	Electricity *Usage       `json:"electricity,omitempty"`
	Gas         *Usage       `json:"gas,omitempty"`
	Water       *Usage       `json:"water,omitempty"`
}

type ReportsAvailable struct {
	Days   []string `json:"days"`
	Weeks  []string `json:"weeks"`
	Months []string `json:"months"`
}
