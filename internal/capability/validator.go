// Package capability normalises raw capability values before they are written to the hub.
package capability

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Class groups capabilities that share a value domain. The name sets behind
// each class are disjoint.
type Class int

const (
	Unknown Class = iota
	Boolean
	UnitInterval
	Temperature
	PowerEnergy
	Percentage
	Enum
	numClasses
)

func (c Class) String() string {
	switch c {
	case Boolean:
		return "boolean"
	case UnitInterval:
		return "unit_interval"
	case Temperature:
		return "temperature"
	case PowerEnergy:
		return "power_energy"
	case Percentage:
		return "percentage"
	case Enum:
		return "enum"
	default:
		return "unknown"
	}
}

// alarmPrefix marks every boolean alarm capability.
const alarmPrefix = "alarm_"

var classByName = map[string]Class{
	"onoff": Boolean,

	"dim":                      UnitInterval,
	"light_hue":                UnitInterval,
	"light_saturation":         UnitInterval,
	"light_temperature":        UnitInterval,
	"volume_set":               UnitInterval,
	"windowcoverings_set":      UnitInterval,
	"windowcoverings_tilt_set": UnitInterval,

	"target_temperature":  Temperature,
	"measure_temperature": Temperature,

	"measure_power":   PowerEnergy,
	"meter_power":     PowerEnergy,
	"measure_voltage": PowerEnergy,
	"measure_current": PowerEnergy,

	"measure_battery":  Percentage,
	"measure_humidity": Percentage,

	"light_mode": Enum,
}

var enumValues = map[string][]string{
	"light_mode": {"color", "temperature"},
}

// ClassOf resolves the class of a capability name.
func ClassOf(name string) Class {
	if c, ok := classByName[name]; ok {
		return c
	}
	if strings.HasPrefix(name, alarmPrefix) {
		return Boolean
	}
	return Unknown
}

// Result is the outcome of Validate. Note carries either the conversion that
// was applied or, when Valid is false, the reason.
type Result struct {
	Valid bool
	Value any
	Note  string
}

type rule func(name string, raw any) Result

var rules = [numClasses]rule{
	Unknown:      passthrough,
	Boolean:      validateBoolean,
	UnitInterval: validateUnitInterval,
	Temperature:  validateTemperature,
	PowerEnergy:  validatePowerEnergy,
	Percentage:   validatePercentage,
	Enum:         validateEnum,
}

// Validate checks raw against the capability's domain and returns the value
// to send. Unknown capabilities pass through unchanged.
func Validate(name string, raw any) Result {
	return rules[ClassOf(name)](name, raw)
}

func passthrough(_ string, raw any) Result {
	return Result{Valid: true, Value: raw}
}

func invalid(raw any, format string, args ...any) Result {
	return Result{Valid: false, Value: raw, Note: fmt.Sprintf(format, args...)}
}

func validateBoolean(name string, raw any) Result {
	switch v := raw.(type) {
	case bool:
		return Result{Valid: true, Value: v}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			return Result{Valid: true, Value: true}
		case "false", "0", "off", "no":
			return Result{Valid: true, Value: false}
		}
	default:
		if n, ok := integral(raw); ok {
			return Result{Valid: true, Value: n != 0}
		}
	}
	return invalid(raw, "Capability %s expects boolean value", name)
}

func validateUnitInterval(name string, raw any) Result {
	f, ok := toFloat(raw)
	if !ok {
		return invalid(raw, "Capability %s expects numeric value", name)
	}
	switch {
	case f >= 0 && f <= 1:
		return Result{Valid: true, Value: f}
	case f > 1 && f <= 100:
		converted := f / 100
		return Result{Valid: true, Value: converted, Note: fmt.Sprintf("Converted %v%% to %v", f, converted)}
	}
	return invalid(raw, "Capability %s must be between 0.0-1.0 (or 0-100%%)", name)
}

func validateTemperature(_ string, raw any) Result {
	f, ok := toFloat(raw)
	if !ok {
		return invalid(raw, "Temperature must be numeric")
	}
	if f < -50 || f > 100 {
		return invalid(raw, "Temperature %v°C seems unrealistic", f)
	}
	return Result{Valid: true, Value: f}
}

func validatePowerEnergy(name string, raw any) Result {
	f, ok := toFloat(raw)
	if !ok {
		return invalid(raw, "Capability %s expects numeric value", name)
	}
	if f < 0 {
		return invalid(raw, "Power/energy cannot be negative")
	}
	return Result{Valid: true, Value: f}
}

func validatePercentage(name string, raw any) Result {
	f, ok := toFloat(raw)
	if !ok {
		return invalid(raw, "Capability %s expects numeric value", name)
	}
	if f < 0 || f > 100 {
		return invalid(raw, "Capability %s must be between 0-100%%", name)
	}
	return Result{Valid: true, Value: f}
}

func validateEnum(name string, raw any) Result {
	if s, ok := raw.(string); ok {
		for _, allowed := range enumValues[name] {
			if s == allowed {
				return Result{Valid: true, Value: s}
			}
		}
	}
	return invalid(raw, "Capability %s has invalid value: %v", name, raw)
}

// toFloat accepts numbers and numeric strings. Booleans are not numbers here.
func toFloat(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// integral reports numeric values without a fractional part.
func integral(raw any) (float64, bool) {
	if _, isString := raw.(string); isString {
		return 0, false
	}
	f, ok := toFloat(raw)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return f, true
}
