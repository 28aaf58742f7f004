// Package dashboard owns the (selectedMR, selectedDate) semantics and fans
// the route snapshot out to the map input, the timeline, and the stats
// panel. Map markers stay chronological; the timeline is newest-first.
package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"mrtrack/internal/backend"
	"mrtrack/internal/model"
	"mrtrack/internal/routestore"
)

// View states. Empty specifically means "selection valid, zero points after
// normalization" and drives the no-data map card.
const (
	StateNoSelection = "no-selection"
	StateLoading     = "loading"
	StateReady       = "ready"
	StateEmpty       = "empty"
	StateError       = "error"
)

type TimelineEntry struct {
	ID       string          `json:"id"`
	Time     string          `json:"time"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle,omitempty"`
	Kind     model.PointType `json:"kind"`
	Color    string          `json:"color"`
}

type StatsPanel struct {
	DistanceKm    float64  `json:"distance_km"`
	ActiveHours   float64  `json:"active_hours"`
	Visits        int      `json:"visits"`
	TotalPoints   int      `json:"total_points"`
	FirstLocation string   `json:"first_location,omitempty"`
	LastLocation  string   `json:"last_location,omitempty"`
	Efficiency    *float64 `json:"efficiency_score,omitempty"`
}

type View struct {
	State     string              `json:"state"`
	Selection model.MapSelection  `json:"selection"`
	Snapshot  routestore.Snapshot `json:"snapshot"`
	Timeline  []TimelineEntry     `json:"timeline"`
	Stats     StatsPanel          `json:"stats"`
	Error     string              `json:"error,omitempty"`
}

type Composer struct {
	Store   *routestore.Store
	Backend backend.Adapter
	Now     func() time.Time
}

func New(store *routestore.Store, adapter backend.Adapter) *Composer {
	return &Composer{Store: store, Backend: adapter, Now: time.Now}
}

// Today is the default selected date, in the server's local zone. The
// polyline dash rule uses the browser-reported today instead.
func (c *Composer) Today() string {
	return c.Now().Local().Format("2006-01-02")
}

// DefaultSelection picks today plus the first MR the backend returns, or an
// empty selection when the fleet is empty.
func (c *Composer) DefaultSelection(ctx context.Context) (model.MapSelection, error) {
	sel := model.MapSelection{Date: c.Today()}
	mrs, err := c.Backend.GetMRs(ctx)
	if err != nil {
		return sel, err
	}
	if len(mrs) > 0 {
		sel.MRID = mrs[0].ID
	}
	return sel, nil
}

// View resolves one selection into the dashboard view model. Invalid dates
// are rejected here and never reach the store.
func (c *Composer) View(ctx context.Context, sel model.MapSelection) View {
	v := View{State: StateNoSelection, Selection: sel}
	if sel.MRID == "" || sel.Date == "" {
		return v
	}
	if !ValidDate(sel.Date) {
		v.State = StateError
		v.Error = fmt.Sprintf("invalid date %q, want YYYY-MM-DD", sel.Date)
		return v
	}

	snap := c.Store.Get(ctx, sel.MRID, sel.Date)
	v.Snapshot = snap
	v.Timeline = Timeline(snap.Points)
	v.Stats = StatsPanel{
		DistanceKm:    snap.Stats.DistanceKm,
		ActiveHours:   snap.Stats.ActiveHours,
		Visits:        snap.Stats.Visits,
		TotalPoints:   snap.Stats.TotalPoints,
		FirstLocation: snap.Stats.FirstLocation,
		LastLocation:  snap.Stats.LastLocation,
		Efficiency:    snap.Stats.EfficiencyScore,
	}

	switch {
	case snap.Err != "" && len(snap.Points) == 0:
		v.State = StateError
		v.Error = snap.Err
	case snap.Err != "":
		// Previous bundle retained; surface the error alongside it.
		v.State = StateReady
		v.Error = snap.Err
	case snap.Loading && len(snap.Points) == 0 && !snap.Empty:
		v.State = StateLoading
	case snap.Empty:
		v.State = StateEmpty
	default:
		v.State = StateReady
	}
	return v
}

var chipColors = map[model.PointType]string{
	model.PointVisit:   "#2563eb",
	model.PointTravel:  "#16a34a",
	model.PointCurrent: "#dc2626",
}

// Timeline lists the day's events newest first.
func Timeline(points []model.RoutePoint) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(points))
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		e := TimelineEntry{
			ID:    p.ID,
			Time:  p.Timestamp.Format(time.RFC3339),
			Title: p.LocationName,
			Kind:  p.Type,
			Color: chipColors[p.Type],
		}
		switch {
		case p.Outcome != "" && p.ContactName != "":
			e.Subtitle = p.ContactName + " · " + p.Outcome
		case p.Outcome != "":
			e.Subtitle = p.Outcome
		case p.ContactName != "":
			e.Subtitle = p.ContactName
		}
		out = append(out, e)
	}
	return out
}

// ExportURL is the GPX download location for a selection.
func ExportURL(mrID, date string) string {
	q := url.Values{"mr_id": {mrID}, "date": {date}}
	return "/api/export/gpx?" + q.Encode()
}

// ValidDate accepts strict YYYY-MM-DD.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil && len(s) == 10
}
