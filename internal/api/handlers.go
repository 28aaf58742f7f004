package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"mrtrack/internal/backend"
	"mrtrack/internal/buildinfo"
	"mrtrack/internal/dashboard"
	"mrtrack/internal/gpx"
	"mrtrack/internal/maprender"
	"mrtrack/internal/model"
	"mrtrack/internal/settings"
)

// upstreamFail maps an adapter error onto the envelope. 4xx rejections keep
// their status; everything else is a gateway problem from the browser's
// point of view.
func upstreamFail(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		writeFail(w, status, apiErr.Message)
		return
	}
	writeFail(w, http.StatusBadGateway, err.Error())
}

// MRsHandler handles GET /api/mrs.
func (s *Server) MRsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mrs, err := s.Backend.GetMRs(r.Context())
	if err != nil {
		upstreamFail(w, err)
		return
	}
	writeOK(w, map[string]any{"mrs": mrs})
}

// MRDetailHandler handles GET /api/mrs/{id}.
func (s *Server) MRDetailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/mrs/")
	if id == "" {
		writeFail(w, http.StatusBadRequest, "mr id required")
		return
	}
	mr, err := s.Backend.GetMRDetail(r.Context(), id)
	if err != nil {
		upstreamFail(w, err)
		return
	}
	writeOK(w, map[string]any{"mr": mr})
}

// RouteHandler handles GET /api/route?mr_id&date: the raw snapshot for the
// selection, straight from the store.
func (s *Server) RouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mrID := r.URL.Query().Get("mr_id")
	date := r.URL.Query().Get("date")
	if mrID == "" || date == "" {
		writeFail(w, http.StatusBadRequest, "mr_id and date are required")
		return
	}
	if !dashboard.ValidDate(date) {
		writeFail(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	var snap any
	if r.URL.Query().Get("refetch") == "1" {
		snap = s.Store.Refetch(r.Context(), mrID, date)
	} else {
		snap = s.Store.Get(r.Context(), mrID, date)
	}
	writeOK(w, map[string]any{"route": snap})
}

// viewRequest is the body of POST /api/view/route: the selection plus the
// renderer state the client echoes from its previous plan.
type viewRequest struct {
	MRID     string          `json:"mr_id"`
	MRName   string          `json:"mr_name,omitempty"`
	Date     string          `json:"date"`
	Today    string          `json:"today"`
	Live     bool            `json:"live,omitempty"`
	CenterOn *model.CenterOn `json:"center_on,omitempty"`
	State    maprender.State `json:"state"`
}

// ViewRouteHandler computes the dashboard view model and the map render
// plan in one round trip. This is the endpoint the dashboard polls.
func (s *Server) ViewRouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Today == "" {
		req.Today = s.Composer.Today()
	}
	sel := model.MapSelection{MRID: req.MRID, Date: req.Date, CenterOn: req.CenterOn}
	view := s.Composer.View(r.Context(), sel)
	plan, state := s.reconciler().Reconcile(req.State, maprender.Input{
		MRID:     req.MRID,
		MRName:   req.MRName,
		Date:     req.Date,
		Today:    req.Today,
		Live:     req.Live,
		Points:   view.Snapshot.Points,
		CenterOn: req.CenterOn,
	})
	writeOK(w, map[string]any{"view": view, "plan": plan, "state": state})
}

// DefaultsHandler handles GET /api/view/defaults: the initial selection and
// the UI bootstrap values.
func (s *Server) DefaultsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sel, err := s.Composer.DefaultSelection(r.Context())
	payload := map[string]any{
		"selection": sel,
		"today":     s.Composer.Today(),
		"currency":  s.currencySymbol(),
	}
	if err != nil {
		payload["message"] = err.Error()
	}
	writeOK(w, payload)
}

// BlueprintHandler handles GET /api/blueprint/{id}?date=.
func (s *Server) BlueprintHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/blueprint/")
	date := r.URL.Query().Get("date")
	if id == "" || !dashboard.ValidDate(date) {
		writeFail(w, http.StatusBadRequest, "mr id and date=YYYY-MM-DD are required")
		return
	}
	bp, err := s.Backend.GetBlueprint(r.Context(), id, date)
	if err != nil {
		upstreamFail(w, err)
		return
	}
	writeOK(w, map[string]any{"blueprint": bp})
}

// AnalyticsHandler handles GET /api/analytics, cached fleet-wide.
func (s *Server) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data, err := s.cache.GetOrFill(r.Context(), "analytics", func(ctx context.Context) ([]byte, error) {
		stats, err := s.Backend.GetFleetStats(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)
	})
	if err != nil {
		upstreamFail(w, err)
		return
	}
	writeOK(w, map[string]any{"data": json.RawMessage(data)})
}

// ActivityHandler handles GET /api/activity?limit=, cached fleet-wide.
func (s *Server) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	key := "activity:" + strconv.Itoa(limit)
	data, err := s.cache.GetOrFill(r.Context(), key, func(ctx context.Context) ([]byte, error) {
		items, err := s.Backend.GetActivity(ctx, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	})
	if err != nil {
		upstreamFail(w, err)
		return
	}
	writeOK(w, map[string]any{"activities": json.RawMessage(data)})
}

// LiveHandler handles GET /api/live?mr_id. Served from the live cache; a
// cold cache falls through to the adapter once.
func (s *Server) LiveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mrID := r.URL.Query().Get("mr_id")
	if mrID == "" {
		writeFail(w, http.StatusBadRequest, "mr_id required")
		return
	}
	if pos, ok := s.Store.Live().Get(mrID); ok {
		writeOK(w, map[string]any{"live": pos})
		return
	}
	pos, err := s.Backend.GetLive(r.Context(), mrID)
	if err != nil {
		upstreamFail(w, err)
		return
	}
	s.Store.Live().Upsert(pos)
	writeOK(w, map[string]any{"live": pos})
}

// ExportHandler handles GET /api/export/gpx?mr_id&date. The upstream export
// is authoritative; when it fails the cached bundle is written locally so
// the download still works. Either way the browser gets the documented
// attachment name.
func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mrID := r.URL.Query().Get("mr_id")
	date := r.URL.Query().Get("date")
	if mrID == "" || !dashboard.ValidDate(date) {
		writeFail(w, http.StatusBadRequest, "mr_id and date=YYYY-MM-DD are required")
		return
	}

	body, err := s.Backend.ExportGPX(r.Context(), mrID, date)
	if err != nil {
		snap := s.Store.Get(r.Context(), mrID, date)
		if len(snap.Points) == 0 {
			upstreamFail(w, err)
			return
		}
		var mrName string
		if mr, derr := s.Backend.GetMRDetail(r.Context(), mrID); derr == nil {
			mrName = mr.Name
		}
		bundle := model.RouteBundle{Points: snap.Points, Stats: snap.Stats, FetchedAt: snap.FetchedAt}
		body, err = gpx.Write(bundle, mrName, mrID, date)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+gpx.Filename(mrID, date)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// SettingsHandler handles GET and PUT /api/settings: theme plus the
// upstream override. This is the only write path for adapter overrides.
func (s *Server) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cur, err := s.Settings.Load(r.Context())
		if err != nil {
			writeFail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeOK(w, map[string]any{"settings": cur})
	case http.MethodPut, http.MethodPost:
		var in struct {
			Theme  string `json:"theme"`
			APIURL string `json:"apiUrl"`
			APIKey string `json:"apiKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		err := s.Settings.Save(r.Context(), settings.Settings{Theme: in.Theme, APIURL: in.APIURL, APIKey: in.APIKey})
		if err != nil {
			writeFail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeOK(w, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ShareQRHandler handles GET /api/share/qr?mr_id&date: a QR PNG of the
// dashboard permalink for the selection.
func (s *Server) ShareQRHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mrID := r.URL.Query().Get("mr_id")
	date := r.URL.Query().Get("date")
	if mrID == "" || !dashboard.ValidDate(date) {
		writeFail(w, http.StatusBadRequest, "mr_id and date=YYYY-MM-DD are required")
		return
	}
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	link := scheme + "://" + r.Host + "/dashboard?mr_id=" + mrID + "&date=" + date
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// VersionHandler handles GET /api/version.
func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"build": buildinfo.Info(), "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"status": "ok"})
}

// ReadyHandler reports readiness; with the HTTP adapter it also reflects
// whether configuration resolves to a backend URL.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"status": "ready", "adapter": s.Backend.Name()})
}
