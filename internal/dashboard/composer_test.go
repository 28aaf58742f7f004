package dashboard

import (
	"context"
	"testing"
	"time"

	"mrtrack/internal/backend"
	"mrtrack/internal/model"
	"mrtrack/internal/routestore"
)

func f(v float64) *float64 { return &v }

type stubAdapter struct {
	mrs      []model.MR
	mrsErr   error
	routes   map[string]model.RouteData
	routeErr error
}

func (a *stubAdapter) Name() string { return "stub" }

func (a *stubAdapter) GetMRs(ctx context.Context) ([]model.MR, error) { return a.mrs, a.mrsErr }

func (a *stubAdapter) GetMRDetail(ctx context.Context, mrID string) (model.MR, error) {
	for _, mr := range a.mrs {
		if mr.ID == mrID {
			return mr, nil
		}
	}
	return model.MR{}, &backend.APIError{Status: 404, Message: "MR not found"}
}

func (a *stubAdapter) GetRoute(ctx context.Context, mrID, date string) (model.RouteData, error) {
	if a.routeErr != nil {
		return model.RouteData{}, a.routeErr
	}
	return a.routes[mrID+"|"+date], nil
}

func (a *stubAdapter) GetBlueprint(ctx context.Context, mrID, date string) (model.Blueprint, error) {
	return model.Blueprint{}, nil
}
func (a *stubAdapter) GetFleetStats(ctx context.Context) (model.FleetStats, error) {
	return model.FleetStats{}, nil
}
func (a *stubAdapter) GetActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	return nil, nil
}
func (a *stubAdapter) GetLive(ctx context.Context, mrID string) (model.LivePosition, error) {
	return model.LivePosition{}, nil
}
func (a *stubAdapter) ExportGPX(ctx context.Context, mrID, date string) ([]byte, error) {
	return nil, &backend.APIError{Status: 501, Message: "no export"}
}

func newComposer(a *stubAdapter) *Composer {
	store := routestore.New(a, routestore.Options{Logf: func(string, ...any) {}})
	c := New(store, a)
	c.Now = func() time.Time { return time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC) }
	return c
}

func routeFixture(date string) model.RouteData {
	return model.RouteData{
		Points: []model.RawPoint{
			{Lat: f(19.0), Lng: f(72.8), Type: "visit", Location: "Apollo Pharmacy",
				Outcome: "order placed", ContactName: "Dr. Rao", Timestamp: date + "T09:00:00Z"},
			{Lat: f(19.05), Lng: f(72.85), Type: "movement", Timestamp: date + "T09:40:00Z"},
			{Lat: f(19.1), Lng: f(72.9), Type: "visit", Location: "City Hospital",
				Timestamp: date + "T10:30:00Z"},
		},
		Stats: model.RawStats{DistanceKm: 8.2, Visits: 2, ActiveHours: 1.5, TotalPoints: 3},
	}
}

func TestDefaultSelection(t *testing.T) {
	a := &stubAdapter{mrs: []model.MR{{ID: "mr7", Name: "Rahul"}, {ID: "mr8", Name: "Priya"}}}
	c := newComposer(a)

	sel, err := c.DefaultSelection(context.Background())
	if err != nil {
		t.Fatalf("DefaultSelection: %v", err)
	}
	if sel.MRID != "mr7" {
		t.Fatalf("default MR = %q, want first", sel.MRID)
	}
	if sel.Date != "2025-06-10" {
		t.Fatalf("default date = %q", sel.Date)
	}
}

func TestDefaultSelectionEmptyFleet(t *testing.T) {
	c := newComposer(&stubAdapter{})
	sel, err := c.DefaultSelection(context.Background())
	if err != nil {
		t.Fatalf("DefaultSelection: %v", err)
	}
	if sel.MRID != "" || sel.Date == "" {
		t.Fatalf("selection = %+v", sel)
	}
}

func TestViewReady(t *testing.T) {
	a := &stubAdapter{routes: map[string]model.RouteData{"mr1|2025-06-10": routeFixture("2025-06-10")}}
	c := newComposer(a)

	v := c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "2025-06-10"})
	if v.State != StateReady {
		t.Fatalf("state = %q, error = %q", v.State, v.Error)
	}
	if len(v.Snapshot.Points) != 3 {
		t.Fatalf("points = %d", len(v.Snapshot.Points))
	}
	if v.Stats.DistanceKm != 8.2 || v.Stats.Visits != 2 {
		t.Fatalf("stats = %+v", v.Stats)
	}
}

func TestViewTimelineNewestFirst(t *testing.T) {
	a := &stubAdapter{routes: map[string]model.RouteData{"mr1|2025-06-10": routeFixture("2025-06-10")}}
	c := newComposer(a)

	v := c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "2025-06-10"})
	if len(v.Timeline) != 3 {
		t.Fatalf("timeline = %d entries", len(v.Timeline))
	}
	if v.Timeline[0].Title != "City Hospital" {
		t.Fatalf("timeline[0] = %+v, want newest first", v.Timeline[0])
	}
	if v.Timeline[2].Subtitle != "Dr. Rao · order placed" {
		t.Fatalf("subtitle = %q", v.Timeline[2].Subtitle)
	}
	// Map order stays chronological even though the timeline is reversed.
	if v.Snapshot.Points[0].LocationName != "Apollo Pharmacy" {
		t.Fatalf("map order disturbed: %+v", v.Snapshot.Points[0])
	}
}

func TestViewStates(t *testing.T) {
	t.Run("no selection", func(t *testing.T) {
		c := newComposer(&stubAdapter{})
		v := c.View(context.Background(), model.MapSelection{})
		if v.State != StateNoSelection {
			t.Fatalf("state = %q", v.State)
		}
	})
	t.Run("invalid date", func(t *testing.T) {
		c := newComposer(&stubAdapter{})
		v := c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "10-06-2025"})
		if v.State != StateError || v.Error == "" {
			t.Fatalf("view = %+v", v)
		}
	})
	t.Run("empty day", func(t *testing.T) {
		c := newComposer(&stubAdapter{routes: map[string]model.RouteData{}})
		v := c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "2025-06-10"})
		if v.State != StateEmpty {
			t.Fatalf("state = %q, error = %q", v.State, v.Error)
		}
	})
	t.Run("error without data", func(t *testing.T) {
		c := newComposer(&stubAdapter{routeErr: &backend.APIError{Status: 404, Message: "no such MR"}})
		v := c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "2025-06-10"})
		if v.State != StateError || v.Error != "no such MR" {
			t.Fatalf("view state = %q, error = %q", v.State, v.Error)
		}
	})
}

func TestViewErrorKeepsPreviousData(t *testing.T) {
	a := &stubAdapter{routes: map[string]model.RouteData{"mr1|2025-06-10": routeFixture("2025-06-10")}}
	c := newComposer(a)

	v := c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "2025-06-10"})
	if v.State != StateReady {
		t.Fatalf("seed state = %q", v.State)
	}

	a.routeErr = &backend.APIError{Status: 400, Message: "bad request"}
	c.Store.Refetch(context.Background(), "mr1", "2025-06-10")

	v = c.View(context.Background(), model.MapSelection{MRID: "mr1", Date: "2025-06-10"})
	if v.State != StateReady {
		t.Fatalf("state after failed refresh = %q", v.State)
	}
	if v.Error != "bad request" {
		t.Fatalf("error not surfaced alongside data: %q", v.Error)
	}
	if len(v.Snapshot.Points) != 3 {
		t.Fatalf("previous bundle dropped: %d points", len(v.Snapshot.Points))
	}
}

func TestExportURL(t *testing.T) {
	got := ExportURL("1201911108", "2025-06-10")
	want := "/api/export/gpx?date=2025-06-10&mr_id=1201911108"
	if got != want {
		t.Fatalf("ExportURL = %q, want %q", got, want)
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"2025-06-10", "2024-02-29", "1999-12-31"}
	invalid := []string{"", "2025-6-1", "10-06-2025", "2025-13-01", "2025-06-10T09:00:00Z", "yesterday"}
	for _, s := range valid {
		if !ValidDate(s) {
			t.Fatalf("ValidDate(%q) = false", s)
		}
	}
	for _, s := range invalid {
		if ValidDate(s) {
			t.Fatalf("ValidDate(%q) = true", s)
		}
	}
}
