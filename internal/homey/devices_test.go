package homey_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/config"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/events"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/homey"
)

const devicesBody = `{
  "lamp": {"id":"lamp","name":"Hall Lamp","class":"light","zoneName":"Hall","available":true,
    "capabilitiesObj":{"onoff":{"value":false,"title":"On/Off"},"dim":{"value":0.4,"title":"Brightness"}}},
  "plug": {"id":"plug","name":"Plug","class":"socket","zoneName":"Office","available":false,
    "capabilitiesObj":{"onoff":{"value":true,"title":"On/Off"}}}
}`

// deviceHub serves the device list and accepts capability writes.
func deviceHub(t *testing.T, listCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/manager/devices/device/":
			listCalls.Add(1)
			_, _ = w.Write([]byte(devicesBody))
		case r.Method == http.MethodPut:
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestDevices_CacheFreshness(t *testing.T) {
	var calls atomic.Int32
	srv := deviceHub(t, &calls)
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newClient(t, srv, nil, homey.WithClock(clock.Now))
	ctx := context.Background()

	_, err := c.Devices.List(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())

	clock.Advance(30 * time.Second)
	_, err = c.Devices.List(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "fresh cache must be served at t+30s")

	clock.Advance(31 * time.Second)
	_, err = c.Devices.List(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load(), "stale cache must refetch at t+61s")
}

func TestDevices_PatchIsolation(t *testing.T) {
	var calls atomic.Int32
	srv := deviceHub(t, &calls)
	defer srv.Close()

	pub := &recordingPublisher{}
	c := newClient(t, srv, nil, homey.WithPublisher(pub))
	ctx := context.Background()

	before, err := c.Devices.List(ctx)
	require.NoError(t, err)

	got, err := c.Devices.SetCapability(ctx, "lamp", "onoff", "on")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	after, err := c.Devices.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, after["lamp"].CapabilityValue("onoff"))
	assert.Equal(t, 0.4, after["lamp"].CapabilityValue("dim"))
	assert.Equal(t, before["plug"], after["plug"])
	assert.Equal(t, false, before["lamp"].CapabilityValue("onoff"), "earlier snapshots are copies")

	_, err = c.Devices.SetCapability(ctx, "lamp", "volume_set", 0.3)
	require.NoError(t, err)
	after, err = c.Devices.List(ctx)
	require.NoError(t, err)
	assert.False(t, after["lamp"].HasCapability("volume_set"), "patch must not add capabilities")

	assert.EqualValues(t, 1, calls.Load())

	evs := pub.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindCapabilitySet, evs[0].Kind)
	assert.Equal(t, "lamp", evs[0].DeviceID)
	assert.False(t, evs[0].Demo)
}

func TestDevices_CallerMutationDoesNotLeak(t *testing.T) {
	var calls atomic.Int32
	srv := deviceHub(t, &calls)
	defer srv.Close()

	c := newClient(t, srv, nil)
	ctx := context.Background()

	first, err := c.Devices.List(ctx)
	require.NoError(t, err)
	first["lamp"].Capabilities["dim"] = first["lamp"].Capabilities["onoff"]
	delete(first, "plug")

	second, err := c.Devices.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.4, second["lamp"].CapabilityValue("dim"))
	assert.Contains(t, second, "plug")
}

func TestDevices_GetNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := deviceHub(t, &calls)
	defer srv.Close()

	_, err := newClient(t, srv, nil).Devices.Get(context.Background(), "ghost")
	var nf *homey.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.ID)
}

func TestDevices_SetCapabilityFallsBackToPost(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
		bodies  []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/manager/devices/device/lamp/capability/dim/", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		methods = append(methods, r.Method)
		bodies = append(bodies, body)
		mu.Unlock()

		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got, err := newClient(t, srv, nil).Devices.SetCapability(context.Background(), "lamp", "dim", 50)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)
	assert.Equal(t, []string{http.MethodPut, http.MethodPost}, methods)
	assert.Equal(t, map[string]any{"value": 0.5}, bodies[1])
}

func TestDevices_SetCapabilityErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad capability"}`))
	}))
	defer srv.Close()
	c := newClient(t, srv, nil)

	_, err := c.Devices.SetCapability(context.Background(), "lamp", "dim", 250)
	var verr *homey.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid capability value: Capability dim must be between 0.0-1.0 (or 0-100%)", err.Error())
	assert.Zero(t, hits.Load(), "invalid values never reach the hub")

	_, err = c.Devices.SetCapability(context.Background(), "lamp", "onoff", true)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, homey.StatusOf(err))
	assert.EqualValues(t, 1, hits.Load(), "only 405 is retried")
}

func TestDevices_Demo(t *testing.T) {
	pub := &recordingPublisher{}
	c := homey.New(&config.Config{OfflineMode: true, CacheTTL: time.Minute, RequestTimeout: time.Second}, homey.WithPublisher(pub))
	ctx := context.Background()

	devices, err := c.Devices.List(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 5)
	for _, id := range []string{"light1", "light2", "sensor1", "thermostat1", "socket1"} {
		assert.Contains(t, devices, id)
	}
	lamp := devices["light1"]
	assert.Equal(t, "Living Room", lamp.Zone)
	assert.Equal(t, false, lamp.CapabilityValue("onoff"))
	assert.Equal(t, "Current Temperature", devices["thermostat1"].Capabilities["measure_temperature"].Title)

	got, err := c.Devices.SetCapability(ctx, "light1", "dim", 80)
	require.NoError(t, err)
	assert.Equal(t, 0.8, got)
	require.Len(t, pub.Events(), 1)
	assert.True(t, pub.Events()[0].Demo)
}
