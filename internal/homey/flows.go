package homey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/events"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/observability"
)

// triggerVariants are tried in order; hub firmware versions disagree on the
// trigger route.
var triggerVariants = []string{"/trigger", "/start", "/run", "/"}

type FlowAPI struct {
	c *Client
}

func (f *FlowAPI) List(ctx context.Context) (map[string]models.Flow, error) {
	if f.c.demo() {
		return demoFlows(), nil
	}
	_, data, err := f.c.do(ctx, "flows.list", http.MethodGet, "/api/manager/flow/flow/", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get flows: %w", err)
	}
	var flows map[string]models.Flow
	if err := json.Unmarshal(data, &flows); err != nil {
		return nil, fmt.Errorf("failed to decode flows: %w", err)
	}
	return flows, nil
}

// Trigger starts a flow. A 404 moves on to the next route variant, a
// transport error is remembered and skipped, any other status aborts.
func (f *FlowAPI) Trigger(ctx context.Context, id string) error {
	if f.c.demo() {
		f.c.log.Infow("demo mode, flow not started", "flow", id)
		f.c.publish(ctx, events.Event{Kind: events.KindFlowTriggered, FlowID: id})
		return nil
	}

	base := "/api/manager/flow/flow/" + url.PathEscape(id)
	var lastErr error
	for _, variant := range triggerVariants {
		path := base + variant
		f.c.log.Debugw("trying flow trigger endpoint", "path", path)

		status, _, err := f.c.do(ctx, "flows.trigger", http.MethodPost, path, nil, nil)
		observability.ObserveFlowTriggerAttempt(variant, attemptLabel(status, err))
		if err == nil {
			f.c.log.Infow("flow triggered", "flow", id, "path", path)
			f.c.publish(ctx, events.Event{Kind: events.KindFlowTriggered, FlowID: id})
			return nil
		}

		switch {
		case status == http.StatusNotFound:
			lastErr = err
		case errors.Is(err, ErrConnectivity):
			lastErr = err
			if ctx.Err() != nil {
				return fmt.Errorf("failed to trigger flow %s: %w", id, err)
			}
		default:
			return fmt.Errorf("failed to trigger flow %s: %w", id, err)
		}
	}

	f.c.log.Errorw("no working flow trigger endpoint", "flow", id, "error", lastErr)
	return fmt.Errorf("flow %s: %w: %w", id, ErrVariantsExhausted, lastErr)
}

func attemptLabel(status int, err error) string {
	if status == 0 && err != nil {
		return "error"
	}
	return strconv.Itoa(status)
}
