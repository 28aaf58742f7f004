package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mrtrack/internal/backend"
	"mrtrack/internal/config"
	"mrtrack/internal/dashboard"
	"mrtrack/internal/maprender"
	"mrtrack/internal/metrics"
	"mrtrack/internal/routestore"
	"mrtrack/internal/settings"
)

type Server struct {
	Cfg      config.Config
	Backend  backend.Adapter
	Store    *routestore.Store
	Settings settings.Store
	Composer *dashboard.Composer
	Renderer maprender.Reconciler

	// mu guards Cfg and Renderer against the config watcher; handlers go
	// through reconciler and currencySymbol instead of reading them directly.
	mu    sync.RWMutex
	cache *responseCache
}

// NewServer wires the stack from configuration: settings persistence
// (memory, sqlite or postgres), the backend adapter (mock or HTTP through
// the override resolver), the route store with its optional redis mirror,
// and the view composer.
func NewServer(cfg config.Config) (*Server, error) {
	metrics.RegisterDefault()

	st, err := settings.New(cfg.DatabaseURL, cfg.SettingsDB)
	if err != nil {
		return nil, err
	}

	var adapter backend.Adapter
	if cfg.UseMock {
		adapter = backend.NewMockAdapter()
	} else {
		adapter = backend.NewHTTPAdapter(&backend.Resolver{
			ConfigURL: cfg.BackendBaseURL,
			ConfigKey: cfg.BackendAPIKey,
			Settings:  st,
		}, cfg.UpstreamTimeout)
	}

	var mirror *routestore.Mirror
	if cfg.RedisURL != "" {
		mirror, err = routestore.NewMirror(cfg.RedisURL, 2*cfg.RoutePollInterval)
		if err != nil {
			log.Printf("redis mirror disabled: %v", err)
			mirror = nil
		}
	}

	store := routestore.New(adapter, routestore.Options{
		PollEvery: cfg.RoutePollInterval,
		LiveEvery: cfg.LivePollInterval,
		Retries:   cfg.FetchRetries,
		Mirror:    mirror,
	})

	return &Server{
		Cfg:      cfg,
		Backend:  adapter,
		Store:    store,
		Settings: st,
		Composer: dashboard.New(store, adapter),
		Renderer: maprender.Reconciler{TileURL: cfg.TileURL, Attribution: cfg.TileAttribution},
		cache:    newResponseCache(cfg.CacheTTL),
	}, nil
}

// Reload applies the hot-reloadable configuration values. It is called from
// the config watcher goroutine, so the swap happens under the lock that
// request handlers read through.
func (s *Server) Reload(next config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cfg.TileURL = next.TileURL
	s.Cfg.TileAttribution = next.TileAttribution
	s.Cfg.CurrencySymbol = next.CurrencySymbol
	s.Renderer.TileURL = next.TileURL
	s.Renderer.Attribution = next.TileAttribution
}

func (s *Server) reconciler() maprender.Reconciler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Renderer
}

func (s *Server) currencySymbol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Cfg.CurrencySymbol
}

// Start launches the background pollers. They stop with ctx.
func (s *Server) Start(ctx context.Context) {
	s.Store.StartPolling(ctx)
}

// Routes builds the full mux: JSON surface, ops endpoints, static assets,
// and the page shell for client-side routes.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// JSON surface for the browser
	mux.HandleFunc("/api/mrs", s.MRsHandler)
	mux.HandleFunc("/api/mrs/", s.MRDetailHandler)
	mux.HandleFunc("/api/route", s.RouteHandler)
	mux.HandleFunc("/api/view/route", s.ViewRouteHandler)
	mux.HandleFunc("/api/view/defaults", s.DefaultsHandler)
	mux.HandleFunc("/api/blueprint/", s.BlueprintHandler)
	mux.HandleFunc("/api/analytics", s.AnalyticsHandler)
	mux.HandleFunc("/api/activity", s.ActivityHandler)
	mux.HandleFunc("/api/live", s.LiveHandler)
	mux.HandleFunc("/api/export/gpx", s.ExportHandler)
	mux.HandleFunc("/api/settings", s.SettingsHandler)
	mux.HandleFunc("/api/share/qr", s.ShareQRHandler)
	mux.HandleFunc("/api/version", s.VersionHandler)

	// Ops
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Static assets and the page shell (catch-all)
	mux.HandleFunc("/static/", s.StaticHandler)
	mux.HandleFunc("/", s.ShellHandler)

	return mux
}
