package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

const (
	highPowerW = 1500
	lowPowerW  = 300
)

func (r *Registry) energyTools() []registration {
	cache := map[string]any{"type": "string", "description": "Cache control parameter (optional)"}
	return []registration{
		{Tool{
			Name:        "get_energy_insights",
			Description: "Get energy consumption data from devices",
			Parameters: object(map[string]any{
				"period": map[string]any{
					"type":    "string",
					"enum":    []string{"1d", "7d", "30d", "1y"},
					"default": "7d",
				},
				"device_filter": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Only list consumers whose name contains one of these",
				},
				"group_by": map[string]any{
					"type":    "string",
					"enum":    []string{"device", "zone", "type", "total"},
					"default": "device",
				},
			}),
		}, r.handleGetEnergyInsights},
		{Tool{
			Name:        "get_energy_report_hourly",
			Description: "Get hourly energy consumption report for a specific hour",
			Parameters: object(map[string]any{
				"date_hour": map[string]any{
					"type":        "string",
					"description": "Date and hour in format YYYY-MM-DD-HH (e.g. 2024-01-15-14)",
				},
				"cache": cache,
			}, "date_hour"),
		}, r.handleGetEnergyReportHourly},
		{Tool{
			Name:        "get_energy_report_yearly",
			Description: "Get yearly energy consumption report for a specific year",
			Parameters: object(map[string]any{
				"year":  map[string]any{"type": "string", "description": "Year in format YYYY (e.g. 2024)"},
				"cache": cache,
			}, "year"),
		}, r.handleGetEnergyReportYearly},
	}
}

func (r *Registry) currencySymbol(ctx context.Context) string {
	if _, err := r.backend.Energy.State(ctx); err != nil {
		r.log.Debugw("energy state unavailable", "error", err)
		return "€"
	}
	cur, err := r.backend.Energy.Currency(ctx)
	if err != nil || cur.Symbol == "" {
		return "€"
	}
	return cur.Symbol
}

func matchesAny(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if containsFold(name, f) {
			return true
		}
	}
	return false
}

// periodReport picks the report covering period around now, with the number
// of days it is averaged over. A zero divisor means no average line.
func periodReport(period string, now time.Time) (heading string, p models.ReportPeriod, key string, days int) {
	switch period {
	case "1d":
		return "Today's", models.PeriodDay, now.Format(time.DateOnly), 0
	case "30d":
		return "This Month's", models.PeriodMonth, now.Format("2006-01"), now.Day()
	case "1y":
		return "This Year's", models.PeriodYear, now.Format("2006"), now.YearDay()
	default:
		year, week := now.ISOWeek()
		return "This Week's", models.PeriodWeek, fmt.Sprintf("%d-W%02d", year, week), 7
	}
}

func (r *Registry) handleGetEnergyInsights(ctx context.Context, args Args) (*ToolResult, error) {
	period := args.StringOr("period", "7d")
	filters := args.Strings("device_filter")
	groupBy := args.StringOr("group_by", "device")
	now := r.now()

	var b strings.Builder
	fmt.Fprintf(&b, "🔋 **Energy Insights - %s**\n\n", period)
	currency := r.currencySymbol(ctx)

	live, liveErr := r.backend.Energy.Live(ctx, "")
	if liveErr != nil {
		r.log.Debugw("live energy report unavailable", "error", liveErr)
	} else {
		b.WriteString("⚡ **Current Power Usage:**\n")
		if e := live.Electricity; e != nil {
			fmt.Fprintf(&b, "• Total: %sW\n", num(e.Total))
			if groupBy == "device" {
				var top []models.LiveDevice
				for _, d := range e.Devices {
					if matchesAny(d.Name, filters) {
						top = append(top, d)
					}
				}
				if len(top) > 5 {
					top = top[:5]
				}
				if len(top) > 0 {
					b.WriteString("• Top consumers:\n")
					for i, d := range top {
						name := d.Name
						if name == "" {
							name = "Unknown"
						}
						fmt.Fprintf(&b, "  %d. %s: %sW\n", i+1, name, num(d.Value))
					}
				}
			}
		}
		if g := live.Gas; g != nil && g.Total > 0 {
			fmt.Fprintf(&b, "• Gas: %s m³/h\n", num(g.Total))
		}
		if w := live.Water; w != nil && w.Total > 0 {
			fmt.Fprintf(&b, "• Water: %s L/min\n", num(w.Total))
		}
		b.WriteString("\n")
	}

	heading, p, key, days := periodReport(period, now)
	if report, err := r.backend.Energy.Report(ctx, p, key, ""); err != nil {
		r.log.Debugw("energy report unavailable", "period", p, "key", key, "error", err)
		b.WriteString("⚠️ Historical energy reports not available\n")
	} else {
		fmt.Fprintf(&b, "📊 **%s Consumption:**\n", heading)
		if e := report.Electricity; e != nil {
			fmt.Fprintf(&b, "• Electricity: %.1f kWh", e.Consumed)
			if e.Produced > 0 {
				fmt.Fprintf(&b, " (produced: %.1f kWh)", e.Produced)
			}
			fmt.Fprintf(&b, " - %s%.2f\n", currency, e.Cost)
			if days > 0 {
				fmt.Fprintf(&b, "  Average per day: %.1f kWh\n", e.Consumed/float64(days))
			}
		}
		if g := report.Gas; g != nil && g.Consumed > 0 {
			fmt.Fprintf(&b, "• Gas: %.1f m³ - %s%.2f\n", g.Consumed, currency, g.Cost)
		}
		if w := report.Water; w != nil && w.Consumed > 0 {
			fmt.Fprintf(&b, "• Water: %.0f L - %s%.2f\n", w.Consumed, currency, w.Cost)
		}
	}

	if liveErr == nil {
		var power float64
		if live.Electricity != nil {
			power = live.Electricity.Total
		}
		b.WriteString("\n💡 **Energy Tips:**\n")
		switch {
		case power > highPowerW:
			fmt.Fprintf(&b, "• High power usage (%sW) - check for energy-hungry devices\n", num(power))
		case power < lowPowerW:
			fmt.Fprintf(&b, "• Great! Low power usage (%sW) - very efficient\n", num(power))
		default:
			fmt.Fprintf(&b, "• Moderate power usage (%sW) - room for improvement\n", num(power))
		}
	}

	b.WriteString("\n🔄 *Real-time data from Homey Energy Manager*")
	return ok("%s", b.String()), nil
}

func (r *Registry) handleGetEnergyReportHourly(ctx context.Context, args Args) (*ToolResult, error) {
	dateHour := args.String("date_hour")
	report, err := r.backend.Energy.Report(ctx, models.PeriodHour, dateHour, args.String("cache"))
	if err != nil {
		return fail("Error getting hourly energy report: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏰ **Hourly Energy Report - %s**\n\n", dateHour)
	if e := report.Electricity; e != nil {
		b.WriteString("⚡ **Electricity:**\n")
		fmt.Fprintf(&b, "  • Consumed: %s kWh\n", num(e.Consumed))
		fmt.Fprintf(&b, "  • Produced: %s kWh\n", num(e.Produced))
		fmt.Fprintf(&b, "  • Cost: €%s\n\n", num(e.Cost))
	}
	if g := report.Gas; g != nil {
		b.WriteString("🔥 **Gas:**\n")
		fmt.Fprintf(&b, "  • Consumed: %s m³\n", num(g.Consumed))
		fmt.Fprintf(&b, "  • Cost: €%s\n\n", num(g.Cost))
	}
	if w := report.Water; w != nil {
		b.WriteString("💧 **Water:**\n")
		fmt.Fprintf(&b, "  • Consumed: %s L\n", num(w.Consumed))
		fmt.Fprintf(&b, "  • Cost: €%s\n", num(w.Cost))
	}
	b.WriteString("\n🔄 *Data from Homey Energy Manager*")
	return ok("%s", b.String()), nil
}

func (r *Registry) handleGetEnergyReportYearly(ctx context.Context, args Args) (*ToolResult, error) {
	year := args.String("year")
	report, err := r.backend.Energy.Report(ctx, models.PeriodYear, year, args.String("cache"))
	if err != nil {
		return fail("Error getting yearly energy report: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **Yearly Energy Report - %s**\n\n", year)
	if e := report.Electricity; e != nil {
		b.WriteString("⚡ **Electricity:**\n")
		fmt.Fprintf(&b, "  • Consumed: %s kWh\n", fixed(e.Consumed, 1))
		fmt.Fprintf(&b, "  • Produced: %s kWh\n", fixed(e.Produced, 1))
		fmt.Fprintf(&b, "  • Cost: €%s\n", fixed(e.Cost, 2))
		if e.Consumed > 0 {
			fmt.Fprintf(&b, "  • Monthly average: %s kWh\n", fixed(e.Consumed/12, 1))
		}
		b.WriteString("\n")
	}
	if g := report.Gas; g != nil {
		b.WriteString("🔥 **Gas:**\n")
		fmt.Fprintf(&b, "  • Consumed: %s m³\n", fixed(g.Consumed, 1))
		fmt.Fprintf(&b, "  • Cost: €%s\n", fixed(g.Cost, 2))
		if g.Consumed > 0 {
			fmt.Fprintf(&b, "  • Monthly average: %s m³\n", fixed(g.Consumed/12, 1))
		}
		b.WriteString("\n")
	}
	if w := report.Water; w != nil {
		b.WriteString("💧 **Water:**\n")
		fmt.Fprintf(&b, "  • Consumed: %s L\n", fixed(w.Consumed, 0))
		fmt.Fprintf(&b, "  • Cost: €%s\n", fixed(w.Cost, 2))
		if w.Consumed > 0 {
			fmt.Fprintf(&b, "  • Monthly average: %s L\n", fixed(w.Consumed/12, 0))
		}
	}
	b.WriteString("\n🔄 *Data from Homey Energy Manager*")
	return ok("%s", b.String()), nil
}
