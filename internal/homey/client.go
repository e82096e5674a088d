// Package homey talks to the local REST API of a Homey hub. A Client runs in
// live mode against the hub or in demo mode on fixture data; the mode is fixed
// at construction.
package homey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/cache"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/config"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/events"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/observability"
)

const maxBodyBytes = 8 << 20

type Mode int

const (
	ModeLive Mode = iota
	ModeDemo
)

func (m Mode) String() string {
	if m == ModeDemo {
		return "demo"
	}
	return "live"
}

type Client struct {
	mode      Mode
	offline   bool
	policy    string
	baseURL   string
	token     string
	http      *http.Client
	devices   *cache.Store[models.Device]
	log       *logger.Logger
	publisher events.Publisher
	tracer    trace.Tracer
	rng       *lockedRand
	now       func() time.Time

	Devices  *DeviceAPI
	Flows    *FlowAPI
	Insights *InsightsAPI
	Energy   *EnergyAPI
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache shares a device cache between clients.
func WithCache(store *cache.Store[models.Device]) Option {
	return func(c *Client) { c.devices = store }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithPublisher(p events.Publisher) Option {
	return func(c *Client) { c.publisher = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithSeed makes demo data reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Client) { c.rng = newLockedRand(seed) }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		mode:      ModeLive,
		offline:   cfg.UseDemoData(),
		policy:    cfg.ConnectPolicy,
		baseURL:   "http://" + cfg.HomeyAddress,
		token:     cfg.HomeyToken,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		log:       logger.Nop(),
		publisher: events.Nop{},
		tracer:    otel.Tracer("homey-client"),
		now:       time.Now,
	}
	if c.offline {
		c.mode = ModeDemo
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.devices == nil {
		c.devices = cache.New[models.Device](cfg.CacheTTL,
			cache.WithClone(models.Device.Clone),
			cache.WithClock[models.Device](c.now))
	}
	if c.rng == nil {
		c.rng = newLockedRand(uint64(time.Now().UnixNano()))
	}
	c.bind()
	return c
}

func (c *Client) bind() {
	c.Devices = &DeviceAPI{c: c}
	c.Flows = &FlowAPI{c: c}
	c.Insights = &InsightsAPI{c: c}
	c.Energy = &EnergyAPI{c: c}
}

// WithMode returns a client in the given mode that shares the cache, HTTP
// client and collaborators of c.
func (c *Client) WithMode(m Mode) *Client {
	cp := *c
	cp.mode = m
	cp.bind()
	return &cp
}

func (c *Client) Mode() Mode { return c.mode }

func (c *Client) demo() bool { return c.mode == ModeDemo }

// ConnectStatus is the result class of Connect.
type ConnectStatus int

const (
	Connected ConnectStatus = iota
	DegradedToDemo
	Failed
	Offline
)

func (s ConnectStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case DegradedToDemo:
		return "degraded_to_demo"
	case Failed:
		return "failed"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

type ConnectionOutcome struct {
	Status ConnectStatus
	Reason string
	Err    error
}

// Connect probes the hub once. It changes nothing: on DegradedToDemo the caller
// switches with WithMode(ModeDemo).
func (c *Client) Connect(ctx context.Context) ConnectionOutcome {
	if c.offline {
		c.log.Infow("offline mode, skipping hub connection")
		return ConnectionOutcome{Status: Offline, Reason: "offline or demo mode configured"}
	}

	c.log.Infow("connecting to hub", "address", c.baseURL)
	_, _, err := c.do(ctx, "system", http.MethodGet, "/api/manager/system", nil, nil)
	out := c.classify(err)

	switch out.Status {
	case Connected:
		c.log.Infow("connected to hub", "address", c.baseURL)
	case DegradedToDemo:
		c.log.Warnw("hub not usable, switching to demo mode", "reason", out.Reason, "error", err)
	default:
		c.log.Errorw("hub connection failed", "reason", out.Reason, "error", err)
	}
	return out
}

func (c *Client) classify(err error) ConnectionOutcome {
	if err == nil {
		return ConnectionOutcome{Status: Connected}
	}

	var reason string
	switch {
	case errors.Is(err, ErrUnauthorized):
		reason = "unauthorized, check the personal access token"
	case errors.Is(err, ErrConnectivity):
		reason = "hub unreachable at " + c.baseURL
	default:
		return ConnectionOutcome{Status: Failed, Reason: "unexpected hub response", Err: err}
	}

	if c.policy == config.PolicyFail {
		return ConnectionOutcome{Status: Failed, Reason: reason, Err: err}
	}
	return ConnectionOutcome{Status: DegradedToDemo, Reason: reason, Err: err}
}

// Disconnect releases pooled connections. Safe to call more than once.
func (c *Client) Disconnect() {
	c.http.CloseIdleConnections()
}

var probePaths = []string{
	"/api/manager/system",
	"/api/manager/devices/device",
	"/api/manager/devices/device/",
	"/api/manager/flow/flow",
	"/api/manager/flow/flow/",
	"/api/manager/geolocation/",
	"/api/manager/cloud/state/",
	"/api/manager/insights/log",
	"/api/manager/insights/log/",
	"/api/manager/insights/state",
	"/api/manager/insights/storage",
	"/api/manager/energy/state",
	"/api/manager/energy/live",
	"/api/manager/energy/currency",
}

// TestEndpoints reports which known hub paths answer 200.
func (c *Client) TestEndpoints(ctx context.Context) (map[string]bool, error) {
	if c.demo() {
		return map[string]bool{"demo_mode": true}, nil
	}
	results := make(map[string]bool, len(probePaths))
	for _, path := range probePaths {
		status, _, err := c.do(ctx, "probe", http.MethodGet, path, nil, nil)
		if err != nil {
			c.log.Debugw("endpoint probe failed", "path", path, "error", err)
		}
		results[path] = status == http.StatusOK
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

// do sends one request. Non-2xx answers return the status and an
// *HTTPStatusError; transport failures wrap ErrConnectivity.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, "homey."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("homey.path", path))

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveHubRequest(op, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return 0, nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrConnectivity, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	observability.ObserveHubRequest(op, strconv.Itoa(resp.StatusCode), time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return resp.StatusCode, data, &HTTPStatusError{
			Status: resp.StatusCode,
			Body:   string(bytes.TrimSpace(data)),
			Method: method,
			Path:   path,
		}
	}
	return resp.StatusCode, data, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	_, data, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) publish(ctx context.Context, ev events.Event) {
	ev.Demo = c.demo()
	ev.Time = c.now().UTC()
	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.log.Warnw("failed to publish event", "kind", ev.Kind, "error", err)
	}
}

// lockedRand serialises access to a demo data source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed uint64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) uniform(lo, hi float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo + l.r.Float64()*(hi-lo)
}

func (l *lockedRand) coin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(2) == 1
}
