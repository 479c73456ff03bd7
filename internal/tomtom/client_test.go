package tomtom

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassifyDelay(t *testing.T) {
	cases := []struct {
		delay float64
		want  string
	}{
		{-1, "light"},
		{0, "light"},
		{0.49, "light"},
		{0.5, "moderate"},
		{1.9, "moderate"},
		{2, "heavy"},
		{4.9, "heavy"},
		{5, "severe"},
		{12, "severe"},
	}
	for _, tc := range cases {
		if got := ClassifyDelay(tc.delay); got != tc.want {
			t.Errorf("ClassifyDelay(%v) = %q, want %q", tc.delay, got, tc.want)
		}
	}
}

func TestFlowAtPoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "test-key" {
			t.Errorf("key = %q, want test-key", q.Get("key"))
		}
		if q.Get("unit") != "MPH" {
			t.Errorf("unit = %q, want MPH", q.Get("unit"))
		}
		if q.Get("point") == "" {
			t.Error("missing point parameter")
		}
		w.Write([]byte(`{
			"flowSegmentData": {
				"currentSpeed": 20,
				"freeFlowSpeed": 30,
				"currentTravelTime": 360,
				"freeFlowTravelTime": 240,
				"confidence": 0.95,
				"coordinates": {"coordinate": []}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURLs(srv.URL, srv.URL))
	m, err := c.FlowAtPoint(context.Background(), Point{Lat: 35.0, Lon: -80.0}, "test venue")
	if err != nil {
		t.Fatalf("FlowAtPoint: %v", err)
	}

	if m.DelayMinutes != 2.0 {
		t.Errorf("DelayMinutes = %v, want 2.0", m.DelayMinutes)
	}
	if m.TrafficLevel != "heavy" {
		t.Errorf("TrafficLevel = %q, want heavy", m.TrafficLevel)
	}
	if m.AvgSpeedMph != 20 || m.TypicalSpeedMph != 30 {
		t.Errorf("speeds = (%v, %v), want (20, 30)", m.AvgSpeedMph, m.TypicalSpeedMph)
	}
	if m.TravelTimeSeconds != 360 || m.TypicalTimeSeconds != 240 {
		t.Errorf("travel times = (%d, %d), want (360, 240)", m.TravelTimeSeconds, m.TypicalTimeSeconds)
	}
	// No segment coordinates: distance estimated from speed and time.
	if m.DistanceMiles != 2.0 {
		t.Errorf("DistanceMiles = %v, want 2.0 (360s at 20 mph)", m.DistanceMiles)
	}
	if m.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", m.Confidence)
	}
	if m.DataSource != "tomtom" {
		t.Errorf("DataSource = %q, want tomtom", m.DataSource)
	}
	if len(m.Raw) == 0 {
		t.Error("Raw response body not captured")
	}
}

func TestFlowAtPointNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURLs(srv.URL, srv.URL))
	_, err := c.FlowAtPoint(context.Background(), Point{Lat: 35.0, Lon: -80.0}, "open water")
	if !errors.Is(err, ErrNoFlowData) {
		t.Fatalf("err = %v, want ErrNoFlowData", err)
	}
}

func TestFlowAtPointBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURLs(srv.URL, srv.URL))
	if _, err := c.FlowAtPoint(context.Background(), Point{}, "x"); err == nil {
		t.Fatal("expected error on 403 response")
	}
}

func TestFlowAtPointNoKey(t *testing.T) {
	c := NewClient("")
	if _, err := c.FlowAtPoint(context.Background(), Point{}, "x"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("traffic") != "true" || q.Get("travelMode") != "car" ||
			q.Get("routeType") != "fastest" || q.Get("departAt") != "now" {
			t.Errorf("unexpected routing query: %v", q)
		}
		w.Write([]byte(`{
			"routes": [{
				"summary": {
					"lengthInMeters": 16093.4,
					"travelTimeInSeconds": 1800,
					"noTrafficTravelTimeInSeconds": 1200,
					"trafficDelayInSeconds": 30
				}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURLs(srv.URL, srv.URL))
	m, err := c.Route(context.Background(), Point{Lat: 35.0, Lon: -80.0}, Point{Lat: 35.1, Lon: -80.1}, "route")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	// Delay comes from the travel-time difference, not trafficDelayInSeconds.
	if m.DelayMinutes != 10.0 {
		t.Errorf("DelayMinutes = %v, want 10.0", m.DelayMinutes)
	}
	if m.TrafficLevel != "severe" {
		t.Errorf("TrafficLevel = %q, want severe", m.TrafficLevel)
	}
	// 10 miles in 1800s is 20 mph; in 1200s is 30 mph.
	if m.AvgSpeedMph != 20.0 {
		t.Errorf("AvgSpeedMph = %v, want 20.0", m.AvgSpeedMph)
	}
	if m.TypicalSpeedMph != 30.0 {
		t.Errorf("TypicalSpeedMph = %v, want 30.0", m.TypicalSpeedMph)
	}
	if m.DistanceMiles != 10.0 {
		t.Errorf("DistanceMiles = %v, want 10.0", m.DistanceMiles)
	}
}

func TestRouteNoRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes": []}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURLs(srv.URL, srv.URL))
	_, err := c.Route(context.Background(), Point{}, Point{}, "nowhere")
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}
}

func TestMeasureAttachesRouteContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"flowSegmentData": {
				"currentSpeed": 0,
				"freeFlowSpeed": 0,
				"currentTravelTime": 300,
				"freeFlowTravelTime": 300,
				"coordinates": {"coordinate": []}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURLs(srv.URL, srv.URL))
	origin := Point{Lat: 35.2271, Lon: -80.8431}
	dest := Point{Lat: 35.2571, Lon: -80.8431}
	m, err := c.Measure(context.Background(), origin, dest, "corridor")
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if m.Origin != origin || m.Destination != dest {
		t.Errorf("route context not attached: origin=%v dest=%v", m.Origin, m.Destination)
	}
	// Flow gave no distance; falls back to great-circle origin-destination.
	want := HaversineMiles(origin, dest)
	if math.Abs(m.DistanceMiles-want) > 0.01 {
		t.Errorf("DistanceMiles = %v, want about %v", m.DistanceMiles, want)
	}
}

func TestHaversineMiles(t *testing.T) {
	// Charlotte to Raleigh is roughly 130 miles.
	charlotte := Point{Lat: 35.2271, Lon: -80.8431}
	raleigh := Point{Lat: 35.7796, Lon: -78.6382}
	d := HaversineMiles(charlotte, raleigh)
	if d < 120 || d > 140 {
		t.Errorf("HaversineMiles(charlotte, raleigh) = %v, want roughly 130", d)
	}

	if d := HaversineMiles(charlotte, charlotte); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}
