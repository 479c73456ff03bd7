package analysis

import (
	"testing"
	"time"

	"trafficpulse/internal/db"
)

func f64(v float64) *float64 { return &v }

func TestClassifyImpact(t *testing.T) {
	cases := []struct {
		delay float64
		want  string
	}{
		{10, "severe"},
		{5.01, "severe"},
		{5.0, "high"}, // boundary is strictly greater-than
		{2.5, "high"},
		{2.0, "moderate"},
		{1.5, "moderate"},
		{1.0, "low"},
		{0.5, "low"},
		{0, "no impact"},
		{-1, "no impact"},
	}
	for _, tc := range cases {
		if got := ClassifyImpact(tc.delay); got != tc.want {
			t.Errorf("ClassifyImpact(%v) = %q, want %q", tc.delay, got, tc.want)
		}
	}
}

func measurementAt(at time.Time, delay, speed float64) db.TrafficMeasurement {
	return db.TrafficMeasurement{
		MeasurementTime: at,
		DelayMinutes:    f64(delay),
		AvgSpeedMph:     f64(speed),
		TrafficLevel:    "moderate",
	}
}

func TestSplitMeasurements(t *testing.T) {
	base := time.Date(2026, 6, 15, 17, 0, 0, 0, time.UTC)
	// Deliberately out of order to prove the sort.
	ms := []db.TrafficMeasurement{
		measurementAt(base.Add(90*time.Minute), 4, 20),
		measurementAt(base, 1, 30),
		measurementAt(base.Add(120*time.Minute), 4, 20),
		measurementAt(base.Add(30*time.Minute), 1, 30),
	}

	before, during := SplitMeasurements(ms)
	if len(before) != 2 || len(during) != 2 {
		t.Fatalf("split sizes = (%d, %d), want (2, 2)", len(before), len(during))
	}
	if !before[0].MeasurementTime.Equal(base) {
		t.Errorf("before half is not the chronologically earliest measurements")
	}
	if !during[1].MeasurementTime.Equal(base.Add(120 * time.Minute)) {
		t.Errorf("during half is not the chronologically latest measurements")
	}
}

func TestSplitMeasurementsOddCount(t *testing.T) {
	base := time.Date(2026, 6, 15, 17, 0, 0, 0, time.UTC)
	ms := []db.TrafficMeasurement{
		measurementAt(base, 1, 30),
		measurementAt(base.Add(30*time.Minute), 2, 28),
		measurementAt(base.Add(60*time.Minute), 3, 25),
	}
	before, during := SplitMeasurements(ms)
	// Count-based split: the odd measurement lands in during.
	if len(before) != 1 || len(during) != 2 {
		t.Errorf("split sizes = (%d, %d), want (1, 2)", len(before), len(during))
	}
}

func TestAnalyzeMeasurements(t *testing.T) {
	base := time.Date(2026, 6, 15, 17, 0, 0, 0, time.UTC)
	event := db.Event{Name: "Championship Game", Category: "Sports"}
	event.ID = 7

	ms := []db.TrafficMeasurement{
		measurementAt(base, 1, 30),
		measurementAt(base.Add(30*time.Minute), 1, 30),
		measurementAt(base.Add(90*time.Minute), 4, 20),
		measurementAt(base.Add(120*time.Minute), 4, 20),
	}

	res := AnalyzeMeasurements(event, "City Stadium", ms)
	if !res.HasData {
		t.Fatalf("expected HasData=true, got reason %q", res.Reason)
	}
	if res.EventName != "Championship Game" || res.VenueName != "City Stadium" {
		t.Errorf("identity fields wrong: %+v", res)
	}
	if res.TotalMeasurements != 4 {
		t.Errorf("TotalMeasurements = %d, want 4", res.TotalMeasurements)
	}

	if res.Before == nil || res.Before.AvgDelay == nil || *res.Before.AvgDelay != 1.0 {
		t.Fatalf("before avg delay = %+v, want 1.0", res.Before)
	}
	if res.During == nil || res.During.AvgDelay == nil || *res.During.AvgDelay != 4.0 {
		t.Fatalf("during avg delay = %+v, want 4.0", res.During)
	}
	if res.During.MaxDelay == nil || *res.During.MaxDelay != 4.0 {
		t.Errorf("during max delay = %+v, want 4.0", res.During.MaxDelay)
	}

	if res.Impact.DelayIncrease == nil || *res.Impact.DelayIncrease != 3.0 {
		t.Fatalf("delay increase = %+v, want 3.0", res.Impact.DelayIncrease)
	}
	// 3.0 / (|1.0| + 1) * 100
	if res.Impact.DelayIncreasePct == nil || *res.Impact.DelayIncreasePct != 150.0 {
		t.Errorf("delay increase pct = %+v, want 150.0", res.Impact.DelayIncreasePct)
	}
	if res.Impact.SpeedDecrease == nil || *res.Impact.SpeedDecrease != 10.0 {
		t.Errorf("speed decrease = %+v, want 10.0", res.Impact.SpeedDecrease)
	}
	if res.Impact.Level != "high" {
		t.Errorf("impact level = %q, want high", res.Impact.Level)
	}
}

func TestAnalyzeMeasurementsNoData(t *testing.T) {
	res := AnalyzeMeasurements(db.Event{Name: "Quiet Night"}, "Somewhere", nil)
	if res.HasData {
		t.Fatal("expected HasData=false for empty input")
	}
	if res.Reason == "" {
		t.Error("NoData result should carry a reason")
	}
	// NoData must stay distinguishable from a computed "no impact".
	if res.Impact.Level == "no impact" {
		t.Errorf("NoData result has level %q; it must not look like a computed classification", res.Impact.Level)
	}
}

func TestAnalyzeMeasurementsMissingDelays(t *testing.T) {
	base := time.Date(2026, 6, 15, 17, 0, 0, 0, time.UTC)
	ms := []db.TrafficMeasurement{
		{MeasurementTime: base, TrafficLevel: "light"},
		{MeasurementTime: base.Add(time.Hour), TrafficLevel: "heavy"},
	}
	res := AnalyzeMeasurements(db.Event{Name: "Sparse"}, "Venue", ms)
	if !res.HasData {
		t.Fatal("rows without delay values still count as data")
	}
	if res.Impact.DelayIncrease != nil {
		t.Errorf("delay increase should be nil without delay values, got %v", *res.Impact.DelayIncrease)
	}
	if res.Impact.Level != "unknown" {
		t.Errorf("impact level = %q, want unknown", res.Impact.Level)
	}
}
