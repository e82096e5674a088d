package observability

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total requests by service, endpoint, method, and status.",
		},
		[]string{"service", "endpoint", "method", "status"},
	)

	hubRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homey_hub_requests_total",
			Help: "Requests sent to the Homey hub by operation and status.",
		},
		[]string{"operation", "status"},
	)

	hubLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homey_hub_request_duration_seconds",
			Help:    "Latency of requests sent to the Homey hub.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	flowTriggerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homey_flow_trigger_attempts_total",
			Help: "Flow trigger endpoint variants tried, by variant and status.",
		},
		[]string{"variant", "status"},
	)

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homey_tool_calls_total",
			Help: "Tool calls by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	toolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homey_tool_call_duration_seconds",
			Help:    "Tool call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homey_events_published_total",
			Help: "Outbound events by kind and result.",
		},
		[]string{"kind", "result"},
	)

	demoMode = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "homey_demo_mode",
		Help: "1 when hub calls are served from demo data.",
	})
)

func init() {
	prometheus.MustRegister(
		requestCounter,
		hubRequests,
		hubLatency,
		flowTriggerAttempts,
		toolCalls,
		toolLatency,
		eventsPublished,
		demoMode,
	)
}

// ObserveHubRequest records one hub round trip. status is the HTTP status
// code or "error" when no response arrived.
func ObserveHubRequest(operation, status string, elapsed time.Duration) {
	hubRequests.WithLabelValues(operation, status).Inc()
	hubLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func ObserveFlowTriggerAttempt(variant, status string) {
	flowTriggerAttempts.WithLabelValues(variant, status).Inc()
}

func ObserveToolCall(tool, outcome string, elapsed time.Duration) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
	toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func ObserveEvent(kind, result string) {
	eventsPublished.WithLabelValues(kind, result).Inc()
}

func SetDemoMode(on bool) {
	if on {
		demoMode.Set(1)
		return
	}
	demoMode.Set(0)
}

// Setup installs the global tracer provider. Spans are exported over OTLP/HTTP
// when otlpEndpoint is set and only kept in-process otherwise.
func Setup(ctx context.Context, serviceName, otlpEndpoint string) (shutdown func(context.Context) error, tracer oteltrace.Tracer, err error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if otlpEndpoint != "" {
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(otlpEndpoint))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, tp.Tracer(serviceName), nil
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func MetricsAndTracingMiddleware(tracer oteltrace.Tracer, serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			method := r.Method
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			ctx, span := tracer.Start(ctx, method+" "+r.URL.Path)
			defer span.End()
			span.SetAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("service.name", serviceName),
			)
			if rid := middleware.GetReqID(ctx); rid != "" {
				span.SetAttributes(attribute.String("http.request_id", rid))
			}
			w.Header().Set("Trace-ID", span.SpanContext().TraceID().String())

			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.status_code", rw.status))
			requestCounter.WithLabelValues(serviceName, routePattern(r), method, strconv.Itoa(rw.status)).Inc()
		})
	}
}

// routePattern keeps path parameters out of metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
