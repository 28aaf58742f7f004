package model

// Raw wire shapes as the tracking backend emits them. The backend is
// inconsistent about coordinate field names (lat|latitude, lng|longitude)
// and carries legacy type strings; only internal/backend decodes these and
// only internal/normalize interprets them.

type RawPoint struct {
	ID          string   `json:"id,omitempty"`
	Time        string   `json:"time,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Type        string   `json:"type,omitempty"`
	Location    string   `json:"location,omitempty"`
	Address     string   `json:"address,omitempty"`
	Details     string   `json:"details,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	VisitType   string   `json:"visit_type,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	ContactName string   `json:"contact_name,omitempty"`
	Orders      string   `json:"orders,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
}

// Coords resolves the lat/lng aliases, preferring the short names.
// ok is false when neither pair is present.
func (p RawPoint) Coords() (lat, lng float64, ok bool) {
	switch {
	case p.Lat != nil && p.Lng != nil:
		return *p.Lat, *p.Lng, true
	case p.Latitude != nil && p.Longitude != nil:
		return *p.Latitude, *p.Longitude, true
	}
	return 0, 0, false
}

type RawStats struct {
	DistanceKm      float64  `json:"distance_km"`
	Visits          int      `json:"visits"`
	ActiveHours     float64  `json:"active_hours"`
	TotalPoints     int      `json:"total_points"`
	FirstLocation   string   `json:"first_location,omitempty"`
	LastLocation    string   `json:"last_location,omitempty"`
	EfficiencyScore *float64 `json:"efficiency_score,omitempty"`
}

// RouteData is the typed result of GET /api/route.
type RouteData struct {
	Points []RawPoint `json:"points"`
	Stats  RawStats   `json:"stats"`
}
