package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"mrtrack/internal/api"
	"mrtrack/internal/buildinfo"
	"mrtrack/internal/config"
	"mrtrack/internal/metrics"
)

func main() {
	cfg := config.Load()

	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Start(ctx)

	if err := config.Watch(ctx, cfg, func(next config.Config) {
		// Hot-reloadable values only; backend overrides already re-resolve
		// per request through the settings store.
		srv.Reload(next)
	}); err != nil {
		log.Printf("config watch disabled: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           logMiddleware(srv.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("mrtrack %s listening on :%s", buildinfo.Version, cfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		dur := time.Since(start)

		status := strconv.Itoa(sw.status)
		path := metricPath(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())
		log.Printf("%s %s %s %d %v req=%s", r.RemoteAddr, r.Method, r.URL.Path, sw.status, dur, reqID)
	})
}

// metricPath collapses per-resource URL segments so the request metrics keep
// a bounded label set. Logs still carry the raw path.
func metricPath(p string) string {
	switch {
	case strings.HasPrefix(p, "/api/mrs/"):
		return "/api/mrs/:id"
	case strings.HasPrefix(p, "/api/blueprint/"):
		return "/api/blueprint/:id"
	case strings.HasPrefix(p, "/mr/"):
		return "/mr/:id"
	case strings.HasPrefix(p, "/static/"):
		return "/static/*"
	}
	return p
}
