package tools

import (
	"context"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/homey"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

type DeviceBackend interface {
	List(ctx context.Context) (map[string]models.Device, error)
	Get(ctx context.Context, id string) (models.Device, error)
	SetCapability(ctx context.Context, id, name string, raw any) (any, error)
}

type FlowBackend interface {
	List(ctx context.Context) (map[string]models.Flow, error)
	Trigger(ctx context.Context, id string) error
}

type InsightsBackend interface {
	Logs(ctx context.Context) (map[string]models.InsightsLog, error)
	Entries(ctx context.Context, q models.EntriesQuery) ([]models.LogEntry, error)
	Storage(ctx context.Context) (models.StorageInfo, error)
}

type EnergyBackend interface {
	State(ctx context.Context) (models.EnergyState, error)
	Live(ctx context.Context, zone string) (models.LiveReport, error)
	Report(ctx context.Context, period models.ReportPeriod, key, cacheMode string) (models.EnergyReport, error)
	Currency(ctx context.Context) (models.Currency, error)
}

type Diagnostics interface {
	TestEndpoints(ctx context.Context) (map[string]bool, error)
}

// Backend is everything the tools read from or write to.
type Backend struct {
	Devices     DeviceBackend
	Flows       FlowBackend
	Insights    InsightsBackend
	Energy      EnergyBackend
	Diagnostics Diagnostics
}

// FromClient binds a Backend to a hub client in whatever mode it was built.
func FromClient(c *homey.Client) Backend {
	return Backend{
		Devices:     c.Devices,
		Flows:       c.Flows,
		Insights:    c.Insights,
		Energy:      c.Energy,
		Diagnostics: c,
	}
}
