// Package backend speaks the tracking API's HTTP contract and is the only
// place that knows its wire shapes. Higher layers depend on the Adapter
// capability set; implementations are swappable at construction time.
package backend

import (
	"context"
	"fmt"

	"mrtrack/internal/model"
	"mrtrack/internal/settings"
)

// Adapter is the read-only capability set against the tracking backend.
// Errors are values: implementations return *APIError for upstream failures
// and never panic across this boundary.
type Adapter interface {
	Name() string
	GetMRs(ctx context.Context) ([]model.MR, error)
	GetMRDetail(ctx context.Context, mrID string) (model.MR, error)
	GetRoute(ctx context.Context, mrID, date string) (model.RouteData, error)
	GetBlueprint(ctx context.Context, mrID, date string) (model.Blueprint, error)
	GetFleetStats(ctx context.Context) (model.FleetStats, error)
	GetActivity(ctx context.Context, limit int) ([]model.Activity, error)
	GetLive(ctx context.Context, mrID string) (model.LivePosition, error)
	ExportGPX(ctx context.Context, mrID, date string) ([]byte, error)
}

// APIError is a failed upstream exchange: transport failure, non-2xx status,
// or an envelope with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend: HTTP %d: %s", e.Status, e.Message)
	}
	return "backend: " + e.Message
}

// Resolver yields the base URL and API key for upstream calls, in priority
// order: persisted operator override, then configuration, then the built-in
// default. Reads go through the settings store every time so a settings
// write takes effect on the next request.
type Resolver struct {
	ConfigURL string
	ConfigKey string
	Settings  settings.Store
}

func (r *Resolver) BaseURL(ctx context.Context) string {
	if r.Settings != nil {
		if s, err := r.Settings.Load(ctx); err == nil && s.APIURL != "" {
			return s.APIURL
		}
	}
	if r.ConfigURL != "" {
		return r.ConfigURL
	}
	return defaultBaseURL
}

func (r *Resolver) APIKey(ctx context.Context) string {
	if r.Settings != nil {
		if s, err := r.Settings.Load(ctx); err == nil && s.APIKey != "" {
			return s.APIKey
		}
	}
	if r.ConfigKey != "" {
		return r.ConfigKey
	}
	return defaultAPIKey
}

const (
	defaultBaseURL = "http://localhost:5000"
	defaultAPIKey  = "mr-tracker-dev-key"
)
