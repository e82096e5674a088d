package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

var (
	grouped = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// display renders a capability value for report text.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return num(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

// fixed formats f with the given number of decimals and thousands separators.
func fixed(f float64, decimals int) string {
	return grouped.Sprintf(fmt.Sprintf("%%.%df", decimals), f)
}

func count(n int64) string {
	return grouped.Sprintf("%d", n)
}

// capabilityTitle turns "measure_temperature" into "Measure Temperature".
func capabilityTitle(name string) string {
	return titler.String(strings.ReplaceAll(name, "_", " "))
}

// prettyJSON indents v by two spaces and leaves non-ASCII text unescaped.
func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedCapabilities(d models.Device) []string {
	return sortedIDs(d.Capabilities)
}

// inZone matches devices whose zone contains zone, ignoring case.
func inZone(d models.Device, zone string) bool {
	return containsFold(d.Zone, zone)
}

// decimals formats f with d decimals and no grouping.
func decimals(f float64, d int) string {
	return strconv.FormatFloat(f, 'f', d, 64)
}
