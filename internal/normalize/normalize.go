// Package normalize turns raw backend route payloads into canonical, valid,
// chronologically ordered RoutePoint sequences. It is pure: no I/O, clock
// and logger injectable.
package normalize

import (
	"fmt"
	"log"
	"sort"
	"time"

	"mrtrack/internal/model"
)

// Normalizer carries the injectable edges. The zero value works and uses
// the real clock and the standard logger.
type Normalizer struct {
	Now  func() time.Time
	Logf func(format string, args ...any)
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n Normalizer) logf(format string, args ...any) {
	if n.Logf != nil {
		n.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Points converts raw points for one (mrID, date) into canonical form:
// coordinate alias resolution, id synthesis, legacy type mapping, field
// fallbacks, validity filtering, and a stable ascending sort by timestamp.
func (n Normalizer) Points(raw []model.RawPoint, mrID, date string) []model.RoutePoint {
	out := make([]model.RoutePoint, 0, len(raw))
	for i, rp := range raw {
		lat, lng, ok := rp.Coords()
		if !ok {
			n.logf("normalize: mr=%s date=%s point=%d dropped: no coordinates", mrID, date, i)
			continue
		}
		loc := model.Location{Lat: lat, Lng: lng}
		if !loc.Valid() {
			n.logf("normalize: mr=%s date=%s point=%d dropped: invalid location (%v,%v)", mrID, date, i, lat, lng)
			continue
		}

		p := model.RoutePoint{
			Latitude:    lat,
			Longitude:   lng,
			Time:        rp.Time,
			Type:        CanonicalType(rp.Type),
			Address:     rp.Address,
			Duration:    rp.Duration,
			ContactName: rp.ContactName,
			Orders:      rp.Orders,
		}

		p.LocationName = rp.Location
		if p.LocationName == "" {
			p.LocationName = fmt.Sprintf("Location %d", i+1)
		}
		p.Outcome = rp.Outcome
		if p.Outcome == "" {
			p.Outcome = rp.Details
		}
		p.VisitType = rp.VisitType
		if p.VisitType == "" && p.Type == model.PointVisit {
			p.VisitType = "other"
		}

		p.Timestamp = n.resolveTimestamp(rp, mrID, date, i)
		if p.Time == "" {
			p.Time = p.Timestamp.Format("15:04")
		}

		p.ID = rp.ID
		if p.ID == "" {
			t := rp.Time
			if t == "" {
				t = p.Timestamp.Format("150405")
			}
			p.ID = fmt.Sprintf("%s_%s_%d_%s", mrID, date, i, t)
		}

		out = append(out, p)
	}

	// Stable: ties keep backend order.
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.Before(out[b].Timestamp)
	})
	return out
}

// resolveTimestamp parses the backend timestamp, combines date+time when
// only the clock time is present, and falls back to now (with a warning)
// when the backend omits both.
func (n Normalizer) resolveTimestamp(rp model.RawPoint, mrID, date string, idx int) time.Time {
	if rp.Timestamp != "" {
		if ts, err := parseTimestamp(rp.Timestamp); err == nil {
			return ts
		}
		n.logf("normalize: mr=%s date=%s point=%d unparseable timestamp %q", mrID, date, idx, rp.Timestamp)
	}
	if rp.Time != "" && date != "" {
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
			if ts, err := time.ParseInLocation(layout, date+" "+rp.Time, time.UTC); err == nil {
				return ts
			}
		}
	}
	n.logf("normalize: mr=%s date=%s point=%d missing timestamp, using current time", mrID, date, idx)
	return n.now()
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// CanonicalType maps the backend's legacy type strings onto the canonical
// set. Unknown values count as visits.
func CanonicalType(raw string) model.PointType {
	switch raw {
	case "start", "visit":
		return model.PointVisit
	case "movement":
		return model.PointTravel
	case "current":
		return model.PointCurrent
	default:
		return model.PointVisit
	}
}

// Stats shapes the backend stats record. Values are authoritative; nothing
// is recomputed here.
func Stats(raw model.RawStats) model.RouteStats {
	return model.RouteStats{
		DistanceKm:      raw.DistanceKm,
		Visits:          raw.Visits,
		ActiveHours:     raw.ActiveHours,
		TotalPoints:     raw.TotalPoints,
		FirstLocation:   raw.FirstLocation,
		LastLocation:    raw.LastLocation,
		EfficiencyScore: raw.EfficiencyScore,
	}
}
