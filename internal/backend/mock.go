package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"mrtrack/internal/model"
)

// MockAdapter serves deterministic in-memory fixtures. It doubles as the
// demo backend (USE_MOCK_BACKEND=1) and the test adapter: for a given
// (mrID, date) the route is always the same.
type MockAdapter struct {
	Now func() time.Time
}

func NewMockAdapter() *MockAdapter { return &MockAdapter{Now: time.Now} }

func (m *MockAdapter) Name() string { return "mock" }

var mockMRs = []model.MR{
	{ID: "1201911108", Name: "Rahul Sharma", Territory: "Mumbai West", Status: model.StatusActive, TotalVisits: 8, DistanceToday: 23.4,
		LastLocation: &model.Location{Lat: 19.0760, Lng: 72.8777, Address: "Andheri West, Mumbai"}},
	{ID: "1201911109", Name: "Priya Patel", Territory: "Pune Central", Status: model.StatusIdle, TotalVisits: 5, DistanceToday: 12.1,
		LastLocation: &model.Location{Lat: 18.5204, Lng: 73.8567, Address: "Shivajinagar, Pune"}},
	{ID: "1201911110", Name: "Amit Verma", Territory: "Nagpur", Status: model.StatusOffline, TotalVisits: 0, DistanceToday: 0},
}

var mockVisitTypes = []string{"hospital", "pharmacy", "clinic", "other"}

func (m *MockAdapter) GetMRs(ctx context.Context) ([]model.MR, error) {
	out := make([]model.MR, len(mockMRs))
	copy(out, mockMRs)
	return out, nil
}

func (m *MockAdapter) GetMRDetail(ctx context.Context, mrID string) (model.MR, error) {
	for _, mr := range mockMRs {
		if mr.ID == mrID {
			return mr, nil
		}
	}
	return model.MR{}, &APIError{Status: 404, Message: "MR not found"}
}

// GetRoute synthesizes a small visit day seeded by (mrID, date). One point
// in three days carries the backend's (0,0) "unknown" sentinel so the demo
// exercises the normalizer's validity filter.
func (m *MockAdapter) GetRoute(ctx context.Context, mrID, date string) (model.RouteData, error) {
	seed := mockSeed(mrID + "|" + date)
	base, ok := m.baseFor(mrID)
	if !ok {
		return model.RouteData{}, &APIError{Status: 404, Message: "MR not found"}
	}
	n := 3 + int(seed%4) // 3..6 points
	points := make([]model.RawPoint, 0, n)
	for i := 0; i < n; i++ {
		lat := base.Lat + float64((seed>>uint(4*i))%50)/1000.0
		lng := base.Lng + float64((seed>>uint(4*i+2))%50)/1000.0
		hh := 9 + i
		mm := int((seed >> uint(i)) % 60)
		typ := "visit"
		if i%3 == 2 {
			typ = "movement"
		}
		p := model.RawPoint{
			Time:        fmt.Sprintf("%02d:%02d", hh, mm),
			Lat:         &lat,
			Lng:         &lng,
			Type:        typ,
			Location:    fmt.Sprintf("Stop %d near %s", i+1, base.Address),
			Timestamp:   fmt.Sprintf("%sT%02d:%02d:00Z", date, hh, mm),
			VisitType:   mockVisitTypes[(int(seed%8)+i)%len(mockVisitTypes)],
			Duration:    15 + int((seed>>uint(i))%30),
			ContactName: "Dr. Fixture",
			Orders:      fmt.Sprintf("%d units", 5+i),
			Outcome:     "successful",
		}
		if seed%3 == 0 && i == n-1 {
			zero := 0.0
			p.Lat, p.Lng = &zero, &zero
		}
		points = append(points, p)
	}
	eff := 72.5
	stats := model.RawStats{
		DistanceKm:      float64(n) * 2.7,
		Visits:          countVisits(points),
		ActiveHours:     float64(n) * 0.9,
		TotalPoints:     len(points),
		FirstLocation:   points[0].Location,
		LastLocation:    points[len(points)-1].Location,
		EfficiencyScore: &eff,
	}
	return model.RouteData{Points: points, Stats: stats}, nil
}

func countVisits(points []model.RawPoint) int {
	n := 0
	for _, p := range points {
		if p.Type != "movement" && p.Type != "travel" {
			n++
		}
	}
	return n
}

func (m *MockAdapter) GetBlueprint(ctx context.Context, mrID, date string) (model.Blueprint, error) {
	data, err := m.GetRoute(ctx, mrID, date)
	if err != nil {
		return model.Blueprint{}, err
	}
	bp := model.Blueprint{TotalDistanceKm: data.Stats.DistanceKm}
	seq := 0
	for _, p := range data.Points {
		lat, lng, ok := p.Coords()
		if !ok || (lat == 0 && lng == 0) || p.Type == "movement" {
			continue
		}
		seq++
		bp.VisitLocations = append(bp.VisitLocations, model.BlueprintStop{
			Sequence: seq, Latitude: lat, Longitude: lng,
			LocationName: p.Location, VisitType: p.VisitType, Details: p.Outcome,
		})
	}
	bp.TotalVisits = seq
	return bp, nil
}

func (m *MockAdapter) GetFleetStats(ctx context.Context) (model.FleetStats, error) {
	total, active, visits := len(mockMRs), 0, 0
	var dist float64
	for _, mr := range mockMRs {
		if mr.Status == model.StatusActive {
			active++
		}
		visits += mr.TotalVisits
		dist += mr.DistanceToday
	}
	avg := 0.0
	if total > 0 {
		avg = float64(visits) / float64(total)
	}
	return model.FleetStats{TotalMRs: total, ActiveMRs: active, TotalVisits: visits, TotalDistance: dist, AvgVisitsPerMR: avg}, nil
}

func (m *MockAdapter) GetActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}
	now := m.Now()
	out := make([]model.Activity, 0, limit)
	for i := 0; i < limit && i < len(mockMRs)*4; i++ {
		mr := mockMRs[i%len(mockMRs)]
		out = append(out, model.Activity{
			ID:        uuid.New().String(),
			Timestamp: now.Add(-time.Duration(i*7) * time.Minute).UTC().Format(time.RFC3339),
			MRID:      mr.ID,
			MRName:    mr.Name,
			Action:    "visit_logged",
			Details:   fmt.Sprintf("Visit #%d completed", i+1),
			Location:  "Fixture Medical Center",
			GPS:       mr.LastLocation,
		})
	}
	return out, nil
}

func (m *MockAdapter) GetLive(ctx context.Context, mrID string) (model.LivePosition, error) {
	mr, err := m.GetMRDetail(ctx, mrID)
	if err != nil {
		return model.LivePosition{}, err
	}
	pos := model.LivePosition{MRID: mrID, Status: string(mr.Status), SeenAt: m.Now()}
	if mr.LastLocation != nil {
		pos.Lat, pos.Lng = mr.LastLocation.Lat, mr.LastLocation.Lng
		pos.Timestamp = m.Now().UTC().Format(time.RFC3339)
	}
	return pos, nil
}

// ExportGPX fails on purpose so the server exercises its local GPX fallback
// in demo mode.
func (m *MockAdapter) ExportGPX(ctx context.Context, mrID, date string) ([]byte, error) {
	return nil, &APIError{Status: 501, Message: "mock backend has no export"}
}

func (m *MockAdapter) baseFor(mrID string) (model.Location, bool) {
	for _, mr := range mockMRs {
		if mr.ID == mrID {
			if mr.LastLocation != nil {
				return *mr.LastLocation, true
			}
			return model.Location{Lat: 19.0760, Lng: 72.8777, Address: "Mumbai"}, true
		}
	}
	return model.Location{}, false
}

func mockSeed(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}
