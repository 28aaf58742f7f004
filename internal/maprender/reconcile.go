package maprender

import (
	"fmt"

	"mrtrack/internal/model"
)

const (
	fitPadding    = 40
	flyMaxZoom    = 16
	singleMaxZoom = 15
	centerOnZoom  = 16
)

// Reconciler carries the tile configuration shared by every plan.
type Reconciler struct {
	TileURL     string
	Attribution string
}

// Reconcile computes the next plan and the state the client must echo on
// the following render.
//
// Viewport rules, in precedence order:
//  1. explicit CenterOn override, once per change (flyTo, default zoom 16)
//  2. MR switch with a non-empty bundle, once (flyToBounds, bounded zoom)
//  3. first non-empty render or marker-count change (fitBounds; a single
//     marker clamps zoom to 15)
//
// Polling that returns the same marker count emits no viewport command, so
// the map never re-zooms under the operator.
func (r Reconciler) Reconcile(state State, in Input) (Plan, State) {
	plan := Plan{TileURL: r.TileURL, Attribution: r.Attribution}

	if !state.StylesInjected {
		plan.Styles = &Styles{ID: StyleElementID, CSS: mapCSS}
		state.StylesInjected = true
	}

	plan.Markers = buildMarkers(in.Points)
	plan.Legend = buildLegend(plan.Markers)
	count := len(plan.Markers)

	if count == 0 {
		plan.Empty = true
		state.MarkerCount = 0
		state.MRID = in.MRID
		state.CenterToken = centerToken(in.CenterOn)
		return plan, state
	}

	if count >= 2 {
		pl := &Polyline{Coords: make([][2]float64, 0, count), Dashed: in.Date != in.Today, Shadow: true}
		for _, m := range plan.Markers {
			pl.Coords = append(pl.Coords, [2]float64{m.Lat, m.Lng})
		}
		plan.Polyline = pl
	}

	bounds := boundsOf(plan.Markers)
	token := centerToken(in.CenterOn)
	switch {
	case in.CenterOn != nil && token != state.CenterToken:
		zoom := in.CenterOn.Zoom
		if zoom == 0 {
			zoom = centerOnZoom
		}
		plan.Viewport = &Viewport{Kind: ViewportFlyTo, Center: &[2]float64{in.CenterOn.Lat, in.CenterOn.Lng}, Zoom: zoom}
	case state.MRID != "" && in.MRID != state.MRID:
		plan.Viewport = &Viewport{Kind: ViewportFlyToBounds, Bounds: &bounds, Padding: fitPadding, MaxZoom: flyMaxZoom}
	case !state.Initialized || count != state.MarkerCount:
		vp := &Viewport{Kind: ViewportFitBounds, Bounds: &bounds, Padding: fitPadding}
		if count == 1 {
			vp.MaxZoom = singleMaxZoom
		}
		plan.Viewport = vp
	}

	state.Initialized = true
	state.MarkerCount = count
	state.MRID = in.MRID
	state.CenterToken = token
	return plan, state
}

func buildMarkers(points []model.RoutePoint) []Marker {
	markers := make([]Marker, 0, len(points))
	visitIdx := make([]int, 0, len(points))
	for _, p := range points {
		m := Marker{
			ID:   p.ID,
			Lat:  p.Latitude,
			Lng:  p.Longitude,
			Kind: p.Type,
			Popup: Popup{
				Name:      p.LocationName,
				Kind:      string(p.Type),
				VisitType: p.VisitType,
				Timestamp: p.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				Duration:  p.Duration,
				Contact:   p.ContactName,
				Orders:    p.Orders,
				Outcome:   p.Outcome,
				GPS:       fmt.Sprintf("%.5f, %.5f", p.Latitude, p.Longitude),
			},
		}
		if p.Address != "" && p.Address != p.LocationName {
			m.Popup.Address = p.Address
		}
		if p.Type == model.PointCurrent {
			m.Pulse = true
		}
		if p.Type == model.PointVisit {
			visitIdx = append(visitIdx, len(markers))
			m.Label = fmt.Sprintf("%d", len(visitIdx))
		}
		markers = append(markers, m)
	}
	if len(visitIdx) > 0 {
		markers[visitIdx[0]].Badge = "S"
		markers[visitIdx[len(visitIdx)-1]].Badge = "E"
	}
	return markers
}

func buildLegend(markers []Marker) Legend {
	lg := Legend{Total: len(markers)}
	present := map[model.PointType]bool{}
	for _, m := range markers {
		switch m.Kind {
		case model.PointVisit:
			lg.Visits++
		case model.PointTravel:
			lg.Travels++
		}
		present[m.Kind] = true
	}
	for _, t := range []model.PointType{model.PointVisit, model.PointTravel, model.PointCurrent} {
		if present[t] {
			lg.Types = append(lg.Types, t)
		}
	}
	return lg
}

func boundsOf(markers []Marker) Bounds {
	b := Bounds{MinLat: markers[0].Lat, MaxLat: markers[0].Lat, MinLng: markers[0].Lng, MaxLng: markers[0].Lng}
	for _, m := range markers[1:] {
		if m.Lat < b.MinLat {
			b.MinLat = m.Lat
		}
		if m.Lat > b.MaxLat {
			b.MaxLat = m.Lat
		}
		if m.Lng < b.MinLng {
			b.MinLng = m.Lng
		}
		if m.Lng > b.MaxLng {
			b.MaxLng = m.Lng
		}
	}
	return b
}

func centerToken(c *model.CenterOn) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%.6f,%.6f,%d", c.Lat, c.Lng, c.Zoom)
}
