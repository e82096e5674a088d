package homey

import (
	"context"
	"fmt"
	"net/url"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

type EnergyAPI struct {
	c *Client
}

func (e *EnergyAPI) State(ctx context.Context) (models.EnergyState, error) {
	if e.c.demo() {
		return models.EnergyState{
			Available:             true,
			Currency:              "EUR",
			ElectricityPriceFixed: 0.30,
			GasPriceFixed:         1.20,
			WaterPriceFixed:       2.50,
		}, nil
	}
	var state models.EnergyState
	if err := e.c.getJSON(ctx, "energy.state", "/api/manager/energy/state", nil, &state); err != nil {
		return models.EnergyState{}, fmt.Errorf("failed to get energy state: %w", err)
	}
	return state, nil
}

// Live returns current usage, optionally limited to one zone.
func (e *EnergyAPI) Live(ctx context.Context, zone string) (models.LiveReport, error) {
	if e.c.demo() {
		return e.demoLive(), nil
	}
	var params url.Values
	if zone != "" {
		params = url.Values{"zone": {zone}}
	}
	var live models.LiveReport
	if err := e.c.getJSON(ctx, "energy.live", "/api/manager/energy/live", params, &live); err != nil {
		return models.LiveReport{}, fmt.Errorf("failed to get live energy report: %w", err)
	}
	return live, nil
}

// Report fetches one period report. key is a date (day), ISO week, year-month,
// year or date-hour; cacheMode is passed through when set.
func (e *EnergyAPI) Report(ctx context.Context, period models.ReportPeriod, key, cacheMode string) (models.EnergyReport, error) {
	switch period {
	case models.PeriodHour, models.PeriodDay, models.PeriodWeek, models.PeriodMonth, models.PeriodYear:
	default:
		return models.EnergyReport{}, fmt.Errorf("unknown energy report period %q", period)
	}

	if e.c.demo() {
		return e.demoReport(period, key), nil
	}

	params := url.Values{period.QueryKey(): {key}}
	if cacheMode != "" {
		params.Set("cache", cacheMode)
	}
	var report models.EnergyReport
	if err := e.c.getJSON(ctx, "energy.report."+string(period), "/api/manager/energy/report/"+string(period), params, &report); err != nil {
		return models.EnergyReport{}, fmt.Errorf("failed to get %s energy report: %w", period, err)
	}
	report.Period = period
	report.Key = key
	return report, nil
}

func (e *EnergyAPI) Available(ctx context.Context) (models.ReportsAvailable, error) {
	if e.c.demo() {
		return demoReportsAvailable(e.c.now()), nil
	}
	var available models.ReportsAvailable
	if err := e.c.getJSON(ctx, "energy.reports_available", "/api/manager/energy/reports/available", nil, &available); err != nil {
		return models.ReportsAvailable{}, fmt.Errorf("failed to get available energy reports: %w", err)
	}
	return available, nil
}

func (e *EnergyAPI) Currency(ctx context.Context) (models.Currency, error) {
	if e.c.demo() {
		return models.Currency{Currency: "EUR", Symbol: "€"}, nil
	}
	var cur models.Currency
	if err := e.c.getJSON(ctx, "energy.currency", "/api/manager/energy/currency", nil, &cur); err != nil {
		return models.Currency{}, fmt.Errorf("failed to get energy currency: %w", err)
	}
	return cur, nil
}
