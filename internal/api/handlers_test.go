package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mrtrack/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(config.Config{
		Port:              "0",
		UseMock:           true,
		TileURL:           "https://tiles.example/{z}/{x}/{y}.png",
		TileAttribution:   "test tiles",
		CurrencySymbol:    "₹",
		RoutePollInterval: time.Hour,
		LivePollInterval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestMRsHandlerEnvelope(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mrs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Fatalf("envelope = %v", body)
	}
	mrs, ok := body["mrs"].([]any)
	if !ok || len(mrs) != 3 {
		t.Fatalf("mrs = %v", body["mrs"])
	}
	first, ok := mrs[0].(map[string]any)
	if !ok {
		t.Fatalf("mr row = %v", mrs[0])
	}
	if first["territory"] != "Mumbai West" {
		t.Fatalf("territory = %v", first["territory"])
	}
}

func TestMRDetailNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mrs/unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != false || body["message"] == "" {
		t.Fatalf("envelope = %v", body)
	}
}

func TestRouteHandlerValidation(t *testing.T) {
	srv := newTestServer(t)
	cases := []string{
		"/api/route",
		"/api/route?mr_id=1201911108",
		"/api/route?mr_id=1201911108&date=10-06-2025",
	}
	for _, u := range cases {
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", u, rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["success"] != false {
			t.Fatalf("%s: envelope = %v", u, body)
		}
	}
}

func TestRouteHandlerReturnsSnapshot(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/route?mr_id=1201911108&date=2025-06-10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	route, ok := body["route"].(map[string]any)
	if !ok {
		t.Fatalf("route missing: %v", body)
	}
	if _, ok := route["points"].([]any); !ok {
		t.Fatalf("points missing: %v", route)
	}
}

func TestViewRouteHandler(t *testing.T) {
	srv := newTestServer(t)

	post := func(reqBody string) (map[string]any, int) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/view/route", strings.NewReader(reqBody))
		req.Header.Set("Content-Type", "application/json")
		srv.Routes().ServeHTTP(rec, req)
		return decodeEnvelope(t, rec), rec.Code
	}

	body, code := post(`{"mr_id":"1201911108","date":"2025-06-10","today":"2025-06-10","state":{}}`)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("code = %d body = %v", code, body)
	}
	plan, ok := body["plan"].(map[string]any)
	if !ok {
		t.Fatalf("plan missing: %v", body)
	}
	if plan["styles"] == nil {
		t.Fatalf("first plan should carry styles")
	}
	if plan["viewport"] == nil {
		t.Fatalf("first plan should fit bounds")
	}

	// Echo the returned state: same count, so no viewport and no styles.
	stateJSON, _ := json.Marshal(body["state"])
	body, code = post(`{"mr_id":"1201911108","date":"2025-06-10","today":"2025-06-10","state":` + string(stateJSON) + `}`)
	if code != http.StatusOK {
		t.Fatalf("second render code = %d", code)
	}
	plan = body["plan"].(map[string]any)
	if plan["styles"] != nil {
		t.Fatalf("styles re-emitted on echoed state")
	}
	if plan["viewport"] != nil {
		t.Fatalf("viewport re-emitted with unchanged count: %v", plan["viewport"])
	}
}

func TestViewRouteHandlerRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/view/route", strings.NewReader("{"))
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDefaultsHandler(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/view/defaults", nil))

	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Fatalf("envelope = %v", body)
	}
	sel, ok := body["selection"].(map[string]any)
	if !ok || sel["mr_id"] != "1201911108" {
		t.Fatalf("selection = %v", body["selection"])
	}
	if body["currency"] != "₹" {
		t.Fatalf("currency = %v", body["currency"])
	}
}

func TestReloadAppliesHotValues(t *testing.T) {
	srv := newTestServer(t)

	srv.Reload(config.Config{
		TileURL:         "https://tiles.example/v2/{z}/{x}/{y}.png",
		TileAttribution: "v2 tiles",
		CurrencySymbol:  "$",
	})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/view/defaults", nil))
	body := decodeEnvelope(t, rec)
	if body["currency"] != "$" {
		t.Fatalf("currency after reload = %v", body["currency"])
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/view/route",
		strings.NewReader(`{"mr_id":"1201911108","date":"2025-06-10","today":"2025-06-10","state":{}}`))
	srv.Routes().ServeHTTP(rec, req)
	body = decodeEnvelope(t, rec)
	plan, ok := body["plan"].(map[string]any)
	if !ok {
		t.Fatalf("plan missing: %v", body)
	}
	if plan["tile_url"] != "https://tiles.example/v2/{z}/{x}/{y}.png" {
		t.Fatalf("tile_url after reload = %v", plan["tile_url"])
	}
}

func TestReloadIsSafeUnderConcurrentRequests(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			symbol := "₹"
			if i%2 == 0 {
				symbol = "$"
			}
			srv.Reload(config.Config{
				TileURL:         "https://tiles.example/{z}/{x}/{y}.png",
				TileAttribution: "test tiles",
				CurrencySymbol:  symbol,
			})
		}
	}()

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/view/defaults", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("defaults status = %d", rec.Code)
		}
		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/view/route",
			strings.NewReader(`{"mr_id":"1201911108","date":"2025-06-10","today":"2025-06-10","state":{}}`))
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("view status = %d", rec.Code)
		}
	}
	<-done
}

func TestExportHandlerFallsBackToLocalGPX(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/gpx?mr_id=1201911108&date=2025-06-10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/gpx+xml" {
		t.Fatalf("content type = %q", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "mr-route-1201911108-2025-06-10.gpx") {
		t.Fatalf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "<gpx") {
		t.Fatalf("body is not GPX: %s", rec.Body.String()[:80])
	}
}

func TestExportHandlerValidation(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/gpx?mr_id=1201911108&date=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"theme":"dark","apiUrl":"http://upstream:9000","apiKey":"k1"}`))
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	body := decodeEnvelope(t, rec)
	got, ok := body["settings"].(map[string]any)
	if !ok {
		t.Fatalf("settings missing: %v", body)
	}
	if got["theme"] != "dark" || got["apiUrl"] != "http://upstream:9000" || got["apiKey"] != "k1" {
		t.Fatalf("settings = %v", got)
	}
}

func TestLiveHandler(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live?mr_id=1201911108", nil))

	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Fatalf("envelope = %v", body)
	}
	live, ok := body["live"].(map[string]any)
	if !ok || live["mr_id"] != "1201911108" {
		t.Fatalf("live = %v", body["live"])
	}
}

func TestAnalyticsAndActivityHandlers(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("analytics = %v", body)
	}
	if data["total_mrs"] != float64(3) {
		t.Fatalf("total_mrs = %v", data["total_mrs"])
	}
	for _, key := range []string{"active_mrs", "total_visits", "total_distance", "avg_visits_per_mr"} {
		if _, ok := data[key]; !ok {
			t.Fatalf("analytics payload missing %q: %v", key, data)
		}
	}

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/activity?limit=5", nil))
	body = decodeEnvelope(t, rec)
	acts, ok := body["activities"].([]any)
	if !ok || len(acts) != 5 {
		t.Fatalf("activities = %v", body["activities"])
	}
	row, ok := acts[0].(map[string]any)
	if !ok {
		t.Fatalf("activity row = %v", acts[0])
	}
	if row["details"] == nil || row["details"] == "" {
		t.Fatalf("activity row missing details: %v", row)
	}
	if _, present := row["description"]; present {
		t.Fatalf("activity row carries a stray description field: %v", row)
	}
}

func TestShareQRHandler(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/share/qr?mr_id=1201911108&date=2025-06-10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty PNG")
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t)

	for _, u := range []string{"/healthz", "/readyz", "/api/version"} {
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", u, rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["success"] != true {
			t.Fatalf("%s envelope = %v", u, body)
		}
	}
}

func TestShellHandler(t *testing.T) {
	srv := newTestServer(t)

	pages := []string{
		"/", "/login", "/register", "/dashboard", "/mrs",
		"/analytics", "/contact", "/settings", "/profile",
		"/mr/1201911108",
	}
	for _, u := range pages {
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", u, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "<html") {
			t.Fatalf("%s shell body missing", u)
		}
	}

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<html") {
		t.Fatalf("404 should still serve the shell")
	}
}

func TestResponseCacheDeduplicates(t *testing.T) {
	c := newResponseCache(time.Minute)
	defer c.Stop()

	calls := 0
	loader := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`{"n":1}`), nil
	}
	for i := 0; i < 3; i++ {
		data, err := c.GetOrFill(context.Background(), "k", loader)
		if err != nil || string(data) != `{"n":1}` {
			t.Fatalf("GetOrFill: %s %v", data, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}

	// Errors are not cached.
	failures := 0
	failing := func(ctx context.Context) ([]byte, error) {
		failures++
		return nil, errCacheStopped
	}
	_, _ = c.GetOrFill(context.Background(), "bad", failing)
	_, _ = c.GetOrFill(context.Background(), "bad", failing)
	if failures != 2 {
		t.Fatalf("failed loads cached: %d calls", failures)
	}
}

func TestResponseCacheDisabled(t *testing.T) {
	var c *responseCache
	calls := 0
	loader := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("x"), nil
	}
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrFill(context.Background(), "k", loader); err != nil {
			t.Fatalf("GetOrFill: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("nil cache must pass through, calls = %d", calls)
	}
}
