package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"mrtrack/internal/metrics"
	"mrtrack/internal/model"
)

// HTTPAdapter is the real upstream client. Retries live in the route store;
// this layer does one attempt per call with a bounded timeout and a shared
// outbound rate limit so polling cannot flood the backend.
type HTTPAdapter struct {
	Resolver *Resolver
	HTTP     *http.Client
	Limiter  *rate.Limiter
}

func NewHTTPAdapter(r *Resolver, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAdapter{
		Resolver: r,
		HTTP:     &http.Client{Timeout: timeout},
		Limiter:  rate.NewLimiter(rate.Limit(20), 40),
	}
}

func (a *HTTPAdapter) Name() string { return "http" }

// envelope is the upstream response wrapper. Payload fields are decoded by
// the caller from the same bytes; this type only carries the verdict.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// get performs one exchange and decodes the payload into out. Non-2xx and
// success=false both come back as *APIError values.
func (a *HTTPAdapter) get(ctx context.Context, op, path string, q url.Values, out any) error {
	if err := a.Limiter.Wait(ctx); err != nil {
		return &APIError{Message: err.Error()}
	}
	u := a.Resolver.BaseURL(ctx) + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	req.Header.Set("X-API-Key", a.Resolver.APIKey(ctx))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.HTTP.Do(req)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "network_error").Inc()
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "read_error").Inc()
		return &APIError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(op, "http_error").Inc()
		return &APIError{Status: resp.StatusCode, Message: upstreamMessage(body, resp.StatusCode)}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "decode_error").Inc()
		return &APIError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if !env.Success {
		metrics.UpstreamRequests.WithLabelValues(op, "rejected").Inc()
		msg := env.Message
		if msg == "" {
			msg = "backend reported failure"
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			metrics.UpstreamRequests.WithLabelValues(op, "decode_error").Inc()
			return &APIError{Status: resp.StatusCode, Message: "malformed payload: " + err.Error()}
		}
	}
	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return nil
}

// upstreamMessage digs a message out of an error body, falling back to the
// status code.
func upstreamMessage(body []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fmt.Sprintf("HTTP %d", status)
}

// wireLocation tolerates both coordinate alias pairs on last_location and
// gps_coordinates payloads.
type wireLocation struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

func (w *wireLocation) toModel() *model.Location {
	if w == nil {
		return nil
	}
	loc := model.Location{Address: w.Address}
	switch {
	case w.Lat != nil && w.Lng != nil:
		loc.Lat, loc.Lng = *w.Lat, *w.Lng
	case w.Latitude != nil && w.Longitude != nil:
		loc.Lat, loc.Lng = *w.Latitude, *w.Longitude
	default:
		return nil
	}
	return &loc
}

type wireMR struct {
	ID            string        `json:"mr_id"`
	Name          string        `json:"name"`
	Territory     string        `json:"territory,omitempty"`
	Status        string        `json:"status"`
	LastActivity  string        `json:"last_activity,omitempty"`
	TotalVisits   int           `json:"total_visits,omitempty"`
	DistanceToday float64       `json:"distance_today,omitempty"`
	LastLocation  *wireLocation `json:"last_location,omitempty"`
}

func (w wireMR) toModel() model.MR {
	status := model.MRStatus(w.Status)
	switch status {
	case model.StatusActive, model.StatusIdle, model.StatusOffline:
	default:
		status = model.StatusOffline
	}
	return model.MR{
		ID:            w.ID,
		Name:          w.Name,
		Territory:     w.Territory,
		Status:        status,
		LastActivity:  w.LastActivity,
		TotalVisits:   w.TotalVisits,
		DistanceToday: w.DistanceToday,
		LastLocation:  w.LastLocation.toModel(),
	}
}

func (a *HTTPAdapter) GetMRs(ctx context.Context) ([]model.MR, error) {
	var payload struct {
		MRs []wireMR `json:"mrs"`
	}
	if err := a.get(ctx, "mrs", "/api/mrs", nil, &payload); err != nil {
		return nil, err
	}
	out := make([]model.MR, 0, len(payload.MRs))
	for _, m := range payload.MRs {
		out = append(out, m.toModel())
	}
	return out, nil
}

func (a *HTTPAdapter) GetMRDetail(ctx context.Context, mrID string) (model.MR, error) {
	var payload struct {
		MR wireMR `json:"mr"`
	}
	q := url.Values{"mr_id": {mrID}}
	if err := a.get(ctx, "mr_detail", "/api/mrs/"+url.PathEscape(mrID), q, &payload); err != nil {
		return model.MR{}, err
	}
	return payload.MR.toModel(), nil
}

func (a *HTTPAdapter) GetRoute(ctx context.Context, mrID, date string) (model.RouteData, error) {
	var payload struct {
		Points []model.RawPoint `json:"points"`
		Stats  model.RawStats   `json:"stats"`
	}
	q := url.Values{"mr_id": {mrID}, "date": {date}}
	if err := a.get(ctx, "route", "/api/route", q, &payload); err != nil {
		return model.RouteData{}, err
	}
	return model.RouteData{Points: payload.Points, Stats: payload.Stats}, nil
}

func (a *HTTPAdapter) GetBlueprint(ctx context.Context, mrID, date string) (model.Blueprint, error) {
	var payload struct {
		Blueprint model.Blueprint `json:"blueprint"`
	}
	q := url.Values{"date": {date}}
	if err := a.get(ctx, "blueprint", "/api/v2/route-blueprint/"+url.PathEscape(mrID), q, &payload); err != nil {
		return model.Blueprint{}, err
	}
	return payload.Blueprint, nil
}

func (a *HTTPAdapter) GetFleetStats(ctx context.Context) (model.FleetStats, error) {
	var payload struct {
		Data model.FleetStats `json:"data"`
	}
	if err := a.get(ctx, "analytics", "/api/analytics", nil, &payload); err != nil {
		return model.FleetStats{}, err
	}
	return payload.Data, nil
}

func (a *HTTPAdapter) GetActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	type wireActivity struct {
		ID        string        `json:"id"`
		Timestamp string        `json:"timestamp"`
		MRID      string        `json:"mr_id"`
		MRName    string        `json:"mr_name"`
		Action    string        `json:"action"`
		Details   string        `json:"details,omitempty"`
		Message   string        `json:"message,omitempty"`
		Location  string        `json:"location,omitempty"`
		GPS       *wireLocation `json:"gps_coordinates,omitempty"`
	}
	var payload struct {
		Activities []wireActivity `json:"activities"`
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if err := a.get(ctx, "activity", "/api/activity", q, &payload); err != nil {
		return nil, err
	}
	out := make([]model.Activity, 0, len(payload.Activities))
	for _, w := range payload.Activities {
		details := w.Details
		if details == "" {
			details = w.Message
		}
		out = append(out, model.Activity{
			ID:        w.ID,
			Timestamp: w.Timestamp,
			MRID:      w.MRID,
			MRName:    w.MRName,
			Action:    w.Action,
			Details:   details,
			Location:  w.Location,
			GPS:       w.GPS.toModel(),
		})
	}
	return out, nil
}

// GetLive decodes a minimal position object. The live schema is not part of
// the documented contract, so any decode problem is reported as an empty fix
// rather than an error.
func (a *HTTPAdapter) GetLive(ctx context.Context, mrID string) (model.LivePosition, error) {
	var payload struct {
		Location  *wireLocation `json:"location"`
		Lat       *float64      `json:"lat"`
		Lng       *float64      `json:"lng"`
		Timestamp string        `json:"timestamp,omitempty"`
		Status    string        `json:"status,omitempty"`
	}
	q := url.Values{"mr_id": {mrID}}
	if err := a.get(ctx, "live", "/api/live", q, &payload); err != nil {
		return model.LivePosition{}, err
	}
	pos := model.LivePosition{MRID: mrID, Timestamp: payload.Timestamp, Status: payload.Status, SeenAt: time.Now()}
	switch {
	case payload.Lat != nil && payload.Lng != nil:
		pos.Lat, pos.Lng = *payload.Lat, *payload.Lng
	case payload.Location != nil:
		if loc := payload.Location.toModel(); loc != nil {
			pos.Lat, pos.Lng = loc.Lat, loc.Lng
		}
	}
	return pos, nil
}

// ExportGPX streams the upstream GPX file. Unlike the JSON ops the body is
// returned raw; callers own the download semantics.
func (a *HTTPAdapter) ExportGPX(ctx context.Context, mrID, date string) ([]byte, error) {
	if err := a.Limiter.Wait(ctx); err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	q := url.Values{"mr_id": {mrID}, "date": {date}}
	u := a.Resolver.BaseURL(ctx) + "/api/export/gpx?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	req.Header.Set("X-API-Key", a.Resolver.APIKey(ctx))
	resp, err := a.HTTP.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("export", "network_error").Inc()
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues("export", "http_error").Inc()
		return nil, &APIError{Status: resp.StatusCode, Message: upstreamMessage(body, resp.StatusCode)}
	}
	metrics.UpstreamRequests.WithLabelValues("export", "ok").Inc()
	return body, nil
}
