package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"log/slog"

	"github.com/bjzgcai/calendar/internal/middleware"
)

// RouterConfig collects the handlers and cross-cutting pieces the router
// assembles. Nil optional handlers leave their routes unregistered so a
// deployment without, say, object storage still serves the rest.
type RouterConfig struct {
	Events    *EventHandlers
	Auth      *AuthHandlers
	Directory *DirectoryHandlers
	Uploads   *UploadHandlers
	Analyze   *AnalyzeHandlers
	Holidays  *HolidayHandlers
	Health    *HealthHandlers

	Logger         *slog.Logger
	SessionService middleware.SessionValidator
	CORS           middleware.CORSConfig
	TracingEnabled bool

	// HTTPMetrics instruments every request; Registry additionally
	// exposes GET /metrics. Both may be nil.
	HTTPMetrics *middleware.Metrics
	Registry    *prometheus.Registry

	// RateLimitStore enables per-IP limits on the auth and analysis
	// endpoints plus a global ceiling. Nil disables rate limiting.
	RateLimitStore middleware.RateLimitStore
}

// NewRouter builds the full route table and wraps it in the shared
// middleware chain: request id, tracing, CORS, metrics, logging, then
// session resolution innermost so handlers see the user id.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Health)
		mux.HandleFunc("GET /ready", cfg.Health.Ready)
	}
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	if cfg.Events != nil {
		mux.HandleFunc("POST /events", cfg.Events.CreateEvent)
		mux.HandleFunc("GET /events", cfg.Events.ListEvents)
		mux.HandleFunc("GET /events/export", cfg.Events.ExportEvents)
		mux.HandleFunc("GET /events/organizers", cfg.Events.ListOrganizers)
		mux.HandleFunc("GET /events/tags", cfg.Events.ListTags)
		mux.HandleFunc("GET /events/{id}", cfg.Events.GetEvent)
		mux.HandleFunc("PUT /events/{id}", cfg.Events.UpdateEvent)
		mux.HandleFunc("DELETE /events/{id}", cfg.Events.DeleteEvent)
	}

	if cfg.Auth != nil {
		login := http.HandlerFunc(cfg.Auth.Login)
		callback := http.HandlerFunc(cfg.Auth.Callback)
		if cfg.RateLimitStore != nil {
			limit := middleware.RateLimiter(cfg.RateLimitStore, middleware.DefaultAuthLimit(), middleware.IPKeyFunc())
			mux.Handle("GET /auth/login", limit(login))
			mux.Handle("GET /auth/callback", limit(callback))
		} else {
			mux.Handle("GET /auth/login", login)
			mux.Handle("GET /auth/callback", callback)
		}
		mux.HandleFunc("POST /auth/logout", cfg.Auth.Logout)
		mux.HandleFunc("GET /auth/user", cfg.Auth.CurrentUser)
	}

	if cfg.Directory != nil {
		mux.Handle("GET /directory/users",
			middleware.RequireAuth(http.HandlerFunc(cfg.Directory.ListUsers)))
	}

	if cfg.Uploads != nil {
		mux.Handle("POST /uploads/posters",
			middleware.RequireAuth(http.HandlerFunc(cfg.Uploads.SignPosterUpload)))
		// Poster reads are public: the URL ends up in calendar entries
		// shared outside the app.
		mux.HandleFunc("GET /posters/{key...}", cfg.Uploads.GetPoster)
	}

	if cfg.Analyze != nil {
		analyze := middleware.RequireAuth(http.HandlerFunc(cfg.Analyze.AnalyzeImage))
		if cfg.RateLimitStore != nil {
			limit := middleware.RateLimiter(cfg.RateLimitStore, middleware.DefaultAnalysisLimit(), middleware.UserKeyFunc())
			analyze = limit(analyze)
		}
		mux.Handle("POST /analyze-image", analyze)
	}

	if cfg.Holidays != nil {
		mux.HandleFunc("GET /holidays", cfg.Holidays.ListHolidays)
		mux.HandleFunc("GET /holidays/status", cfg.Holidays.HolidayStatus)
	}

	var handler http.Handler = mux

	if cfg.SessionService != nil {
		handler = middleware.Session(cfg.SessionService)(handler)
	}
	if cfg.RateLimitStore != nil {
		handler = middleware.RateLimiter(cfg.RateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	}
	if cfg.Logger != nil {
		handler = middleware.Logging(cfg.Logger)(handler)
	}
	if cfg.HTTPMetrics != nil {
		handler = middleware.HTTPMetrics(cfg.HTTPMetrics)(handler)
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.CORS)(handler)
	}
	if cfg.TracingEnabled {
		handler = middleware.Tracing("calendar-api")(handler)
	}
	handler = middleware.RequestID(handler)

	return handler
}
