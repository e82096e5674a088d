package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/config"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/observability"
)

const serviceName = "homey-mcp"

// NewRouter creates the HTTP router. Tool routes are protected when the
// configured public key loads.
func NewRouter(h *Handler, cfg *config.Config, tracer trace.Tracer) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(observability.MetricsAndTracingMiddleware(tracer, serviceName))

	r.Get("/health", h.Health)
	r.Handle("/metrics", observability.Handler())

	var auth func(http.Handler) http.Handler
	if cfg.JWTPublicKeyPath != "" {
		pubKey, err := loadRSAPublicKey(cfg.JWTPublicKeyPath)
		if err != nil {
			h.log.Warnw("jwt public key not loaded, tool routes are unauthenticated", "path", cfg.JWTPublicKeyPath, "error", err)
		} else {
			auth = JWTAuthMiddleware(pubKey)
		}
	}

	r.Group(func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}

		r.Get("/api/tools", h.ListTools)
		r.Post("/api/tools/{name}", h.CallTool)
		r.Get("/api/diagnostics/endpoints", h.TestEndpoints)

		r.Get("/ws/tools", h.HandleWebSocket)
	})

	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
