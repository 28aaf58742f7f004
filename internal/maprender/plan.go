// Package maprender decides what the browser map should do next. The client
// keeps no reconciliation logic: it echoes back the State token from the
// previous plan, and Reconcile computes the full replacement marker set, the
// polyline, at most one viewport command, and (once per renderer instance)
// the style payload. Markers are always rebuilt from scratch; counts are
// small and full rebuild keeps the rules obviously correct.
package maprender

import (
	"mrtrack/internal/model"
)

// State is the opaque-to-the-client renderer state echoed between renders.
type State struct {
	Initialized    bool   `json:"initialized"`
	MarkerCount    int    `json:"marker_count"`
	MRID           string `json:"mr_id"`
	CenterToken    string `json:"center_token,omitempty"`
	StylesInjected bool   `json:"styles_injected"`
}

// Input is one render request.
type Input struct {
	MRID     string
	MRName   string
	Date     string
	Today    string // client-local today, YYYY-MM-DD; drives the dashed rule
	Live     bool
	Points   []model.RoutePoint
	CenterOn *model.CenterOn
}

// Marker is one rendered point. Label carries the 1-based visit sequence
// number; Badge is "S"/"E" on the first and last visit.
type Marker struct {
	ID    string          `json:"id"`
	Lat   float64         `json:"lat"`
	Lng   float64         `json:"lng"`
	Kind  model.PointType `json:"kind"`
	Label string          `json:"label,omitempty"`
	Badge string          `json:"badge,omitempty"`
	Pulse bool            `json:"pulse,omitempty"`
	Popup Popup           `json:"popup"`
}

// Popup carries the per-marker detail card fields. Timestamps stay RFC3339;
// the browser formats them in the user's locale.
type Popup struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	VisitType string `json:"visit_type,omitempty"`
	Timestamp string `json:"timestamp"`
	Duration  int    `json:"duration,omitempty"`
	Contact   string `json:"contact,omitempty"`
	Orders    string `json:"orders,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	GPS       string `json:"gps"`
	Address   string `json:"address,omitempty"`
}

// Polyline joins the markers chronologically. Dashed marks a historical
// ("blueprint") day; Shadow asks for the depth underlay stroke.
type Polyline struct {
	Coords [][2]float64 `json:"coords"`
	Dashed bool         `json:"dashed"`
	Shadow bool         `json:"shadow"`
}

// Viewport commands, applied at most one per plan.
const (
	ViewportFitBounds   = "fitBounds"
	ViewportFlyToBounds = "flyToBounds"
	ViewportFlyTo       = "flyTo"
)

type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

type Viewport struct {
	Kind    string      `json:"kind"`
	Bounds  *Bounds     `json:"bounds,omitempty"`
	Padding int         `json:"padding,omitempty"`
	MaxZoom int         `json:"max_zoom,omitempty"`
	Center  *[2]float64 `json:"center,omitempty"`
	Zoom    int         `json:"zoom,omitempty"`
}

// Legend is the stats overlay on the map card.
type Legend struct {
	Total   int               `json:"total"`
	Visits  int               `json:"visits"`
	Travels int               `json:"travels"`
	Types   []model.PointType `json:"types"`
}

// Styles is the one-shot CSS payload; the client injects it under ID and
// treats a second injection as a no-op.
type Styles struct {
	ID  string `json:"id"`
	CSS string `json:"css"`
}

// Plan is everything the executor applies for one render.
type Plan struct {
	Empty       bool      `json:"empty"`
	Markers     []Marker  `json:"markers"`
	Polyline    *Polyline `json:"polyline,omitempty"`
	Viewport    *Viewport `json:"viewport,omitempty"`
	Legend      Legend    `json:"legend"`
	Styles      *Styles   `json:"styles,omitempty"`
	TileURL     string    `json:"tile_url,omitempty"`
	Attribution string    `json:"attribution,omitempty"`
}
