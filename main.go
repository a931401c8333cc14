package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/taskmanager-api/internal/config"
	"github.com/s1natex/taskmanager-api/internal/middleware"
	"github.com/s1natex/taskmanager-api/internal/tasks"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// pinger is implemented by stores that can report reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// newRouter wires the health endpoints, task routes, and middleware stack
func newRouter(repo tasks.Repository, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, spans, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	// CORS runs before auth so preflights from the frontend always succeed.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", "Trace-Id"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.TracingMiddleware)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Mode:        middleware.AuthMode(cfg.Auth.Mode),
		APIKey:      cfg.Auth.APIKey,
		BearerToken: cfg.Auth.BearerToken,
		SkipPaths:   []string{"/", "/health", "/metrics"},
	}))

	// ---- Routes ----

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "online",
			"message": "Task Manager API rodando com Arquitetura Modular! 🚀",
		})
	})

	// readiness: 503 when the store is unreachable
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := repo.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				logger.Warn("health_check_failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())
	}

	// /tasks/ and /tasks/{id}
	tasks.RegisterRoutes(r, tasks.NewService(repo))

	return r
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
