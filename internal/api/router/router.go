package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/chappy-widget-api/internal/http/middleware"
	"github.com/wolfman30/chappy-widget-api/internal/profile"
	"github.com/wolfman30/chappy-widget-api/internal/subscription"
	"github.com/wolfman30/chappy-widget-api/internal/usage"
	"github.com/wolfman30/chappy-widget-api/internal/webchat"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ChatHandler         *webchat.Handler
	ProfileHandler      *profile.Handler
	SubscriptionHandler *subscription.Handler
	UsageHandler        *usage.Handler
	MetricsHandler      http.Handler
	ReadinessChecks     map[string]ReadinessCheck

	CORSAllowedOrigins []string
	WidgetAPIKeys      []string
	AdminAuthSecret    string

	ChatRateLimit  int
	ChatRateWindow time.Duration
	APIRateLimit   int
	APIRateWindow  time.Duration
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", health)
	r.Get("/ready", ready(cfg.ReadinessChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Compress(5))
		if cfg.ChatHandler != nil {
			api.With(
				httpmiddleware.RateLimit(orDefault(cfg.ChatRateLimit, 20), orDefaultWindow(cfg.ChatRateWindow, time.Minute)),
				httpmiddleware.APIKey(cfg.WidgetAPIKeys),
			).Mount("/chat", cfg.ChatHandler.Routes())
		}

		api.Group(func(rest chi.Router) {
			rest.Use(httpmiddleware.RateLimit(orDefault(cfg.APIRateLimit, 100), orDefaultWindow(cfg.APIRateWindow, 15*time.Minute)))
			if cfg.ProfileHandler != nil {
				rest.Mount("/business", cfg.ProfileHandler.PublicRoutes())
			}
			if cfg.SubscriptionHandler != nil {
				rest.Mount("/subscriptions", cfg.SubscriptionHandler.PublicRoutes())
			}
			if cfg.UsageHandler != nil {
				rest.Mount("/metrics", cfg.UsageHandler.PublicRoutes())
			}
		})
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.ProfileHandler != nil {
			admin.Mount("/profiles", cfg.ProfileHandler.AdminRoutes())
		}
		if cfg.SubscriptionHandler != nil {
			admin.Mount("/subscriptions", cfg.SubscriptionHandler.AdminRoutes())
		}
		if cfg.UsageHandler != nil {
			admin.Mount("/metrics", cfg.UsageHandler.AdminRoutes())
			admin.Mount("/demo", cfg.UsageHandler.DemoRoutes())
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func ready(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				logging.FromContext(r.Context(), nil).Warn("readiness check failed", "dependency", name, "error", err)
				continue
			}
			results[name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		writeJSON(w, status, map[string]any{"status": state, "checks": results})
	}
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func orDefaultWindow(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
