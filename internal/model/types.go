package model

import "time"

// Canonical domain types for the MR tracking frontend. The wire-tolerant raw
// shapes live in raw.go; everything outside internal/backend deals in these.

type MRStatus string

const (
	StatusActive  MRStatus = "active"
	StatusIdle    MRStatus = "idle"
	StatusOffline MRStatus = "offline"
)

// Location is a lat/lng pair with an optional human-readable address.
// The backend uses (0,0) as an "unknown" sentinel; Valid rejects it.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

func (l Location) Valid() bool {
	if l.Lat < -90 || l.Lat > 90 {
		return false
	}
	if l.Lng < -180 || l.Lng > 180 {
		return false
	}
	if l.Lat == 0 && l.Lng == 0 {
		return false
	}
	return true
}

// MR is a medical representative as reported by the tracking backend.
// Identity and status are read-only here; the frontend filters but never
// rewrites them.
type MR struct {
	ID            string    `json:"mr_id"`
	Name          string    `json:"name"`
	Territory     string    `json:"territory,omitempty"`
	Status        MRStatus  `json:"status"`
	LastActivity  string    `json:"last_activity,omitempty"`
	TotalVisits   int       `json:"total_visits,omitempty"`
	DistanceToday float64   `json:"distance_today,omitempty"`
	LastLocation  *Location `json:"last_location,omitempty"`
}

type PointType string

const (
	PointVisit   PointType = "visit"
	PointTravel  PointType = "travel"
	PointCurrent PointType = "current"
)

// RoutePoint is the canonical per-event record. Points are only admitted
// downstream when their location passes Location.Valid, and sequences are
// kept in ascending Timestamp order (ties keep backend order).
type RoutePoint struct {
	ID           string    `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Time         string    `json:"time,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Type         PointType `json:"type"`
	LocationName string    `json:"location_name"`
	Address      string    `json:"address,omitempty"`
	VisitType    string    `json:"visit_type,omitempty"`
	Duration     int       `json:"duration,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
	ContactName  string    `json:"contact_name,omitempty"`
	Orders       string    `json:"orders,omitempty"`
}

func (p RoutePoint) Location() Location {
	return Location{Lat: p.Latitude, Lng: p.Longitude, Address: p.Address}
}

// RouteStats is backend-derived and authoritative; the frontend displays it
// and never recomputes distance. EfficiencyScore is passed through verbatim,
// its derivation is not part of the backend contract.
type RouteStats struct {
	DistanceKm      float64  `json:"distance_km"`
	Visits          int      `json:"visits"`
	ActiveHours     float64  `json:"active_hours"`
	TotalPoints     int      `json:"total_points"`
	FirstLocation   string   `json:"first_location,omitempty"`
	LastLocation    string   `json:"last_location,omitempty"`
	EfficiencyScore *float64 `json:"efficiency_score,omitempty"`
}

// RouteBundle is the cache entry for one (mrID, date) key.
type RouteBundle struct {
	Points    []RoutePoint `json:"points"`
	Stats     RouteStats   `json:"stats"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// CenterOn is an explicit view override supplied by the dashboard.
type CenterOn struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom,omitempty"`
}

// MapSelection is the transient UI selection owned by the dashboard.
type MapSelection struct {
	MRID     string    `json:"mr_id"`
	Date     string    `json:"date"`
	CenterOn *CenterOn `json:"center_on,omitempty"`
	Follow   bool      `json:"follow,omitempty"`
}

// Activity is one row of the recent-events feed.
type Activity struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	MRID      string    `json:"mr_id"`
	MRName    string    `json:"mr_name"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Location  string    `json:"location,omitempty"`
	GPS       *Location `json:"gps_coordinates,omitempty"`
}

// FleetStats are the /api/analytics aggregates.
type FleetStats struct {
	TotalMRs       int     `json:"total_mrs"`
	ActiveMRs      int     `json:"active_mrs"`
	TotalVisits    int     `json:"total_visits"`
	TotalDistance  float64 `json:"total_distance"`
	AvgVisitsPerMR float64 `json:"avg_visits_per_mr"`
}

// Blueprint is the backend-aggregated visit plan for one MR on one date.
type Blueprint struct {
	TotalVisits     int             `json:"total_visits"`
	TotalDistanceKm float64         `json:"total_distance_km"`
	VisitLocations  []BlueprintStop `json:"visit_locations"`
}

type BlueprintStop struct {
	Sequence     int     `json:"sequence"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"location_name"`
	VisitType    string  `json:"visit_type,omitempty"`
	Details      string  `json:"details,omitempty"`
}

// LivePosition is the latest known position for one MR.
type LivePosition struct {
	MRID      string    `json:"mr_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp string    `json:"timestamp,omitempty"`
	Status    string    `json:"status,omitempty"`
	SeenAt    time.Time `json:"seen_at"`
}
