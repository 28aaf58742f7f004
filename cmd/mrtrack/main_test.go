package main

import "testing"

func TestMetricPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/mrs", "/api/mrs"},
		{"/api/mrs/1201911108", "/api/mrs/:id"},
		{"/api/blueprint/1201911108", "/api/blueprint/:id"},
		{"/mr/1201911108", "/mr/:id"},
		{"/static/app.js", "/static/*"},
		{"/api/route", "/api/route"},
		{"/dashboard", "/dashboard"},
		{"/", "/"},
	}
	for _, c := range cases {
		if got := metricPath(c.in); got != c.want {
			t.Fatalf("metricPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
