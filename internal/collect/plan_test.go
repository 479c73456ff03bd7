package collect

import (
	"testing"
	"time"

	"trafficpulse/internal/db"
)

func strptr(s string) *string { return &s }

func TestIsMajorCategory(t *testing.T) {
	cases := []struct {
		category string
		want     bool
	}{
		{"Sports", true},
		{"Sports/Fitness", true},
		{"sports", true},
		{"Concerts & Music", true},
		{"Festivals & Special Events", true},
		{"Live Music Night", true},
		{"Arts & Culture", false},
		{"Community Meeting", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsMajorCategory(tc.category); got != tc.want {
			t.Errorf("IsMajorCategory(%q) = %v, want %v", tc.category, got, tc.want)
		}
	}
}

func TestPlanForMajorEvent(t *testing.T) {
	e := db.Event{
		Name:      "Championship Game",
		StartDate: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		StartTime: strptr("19:00:00"),
		Category:  "Sports",
	}
	plan := PlanFor(e)

	if !plan.Collect {
		t.Fatalf("expected Collect=true, got %+v", plan)
	}
	if plan.Type != "major_single_day" {
		t.Errorf("Type = %q, want major_single_day", plan.Type)
	}
	if !plan.CollectAfter {
		t.Error("major event should collect after")
	}
	if plan.NumDirections != 4 {
		t.Errorf("NumDirections = %d, want 4", plan.NumDirections)
	}
	if plan.EstimatedCalls != 8 {
		t.Errorf("EstimatedCalls = %d, want 8", plan.EstimatedCalls)
	}
}

func TestPlanForMinorEvent(t *testing.T) {
	e := db.Event{
		Name:      "Gallery Opening",
		StartDate: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		StartTime: strptr("18:00:00"),
		Category:  "Arts & Culture",
	}
	plan := PlanFor(e)

	if !plan.Collect {
		t.Fatalf("expected Collect=true, got %+v", plan)
	}
	if plan.Type != "minor_single_day" {
		t.Errorf("Type = %q, want minor_single_day", plan.Type)
	}
	if plan.CollectAfter {
		t.Error("minor event should not collect after")
	}
	if plan.NumDirections != 2 {
		t.Errorf("NumDirections = %d, want 2", plan.NumDirections)
	}
	if plan.EstimatedCalls != 2 {
		t.Errorf("EstimatedCalls = %d, want 2", plan.EstimatedCalls)
	}
}

func TestPlanForMultiDayMajor(t *testing.T) {
	e := db.Event{
		Name:       "Summer Festival",
		StartDate:  time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC),
		StartTime:  strptr("12:00:00"),
		Category:   "Festival",
		IsMultiDay: true,
	}
	plan := PlanFor(e)
	if plan.Type != "major_multi_day" {
		t.Errorf("Type = %q, want major_multi_day", plan.Type)
	}
}

func TestPlanForSkipsUntimedEvent(t *testing.T) {
	e := db.Event{
		Name:      "All Day Market",
		StartDate: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Category:  "Sports",
	}
	plan := PlanFor(e)
	if plan.Collect {
		t.Fatalf("expected Collect=false for event without a start time, got %+v", plan)
	}
	if plan.Reason == "" {
		t.Error("skip should carry a reason")
	}
}

func TestEstimateCalls(t *testing.T) {
	events := []db.Event{
		{Name: "Game", StartTime: strptr("19:00:00"), Category: "Sports"},
		{Name: "Show", StartTime: strptr("20:00:00"), Category: "Theatre"},
		{Name: "Untimed", Category: "Sports"},
	}
	est := EstimateCalls(events)

	if est.TotalCalls != 10 {
		t.Errorf("TotalCalls = %d, want 10", est.TotalCalls)
	}
	if est.EventsProcessed != 3 {
		t.Errorf("EventsProcessed = %d, want 3", est.EventsProcessed)
	}
	if est.EventsSkipped != 1 {
		t.Errorf("EventsSkipped = %d, want 1", est.EventsSkipped)
	}
	if est.ByType["major_single_day"] != 8 {
		t.Errorf("ByType[major_single_day] = %d, want 8", est.ByType["major_single_day"])
	}
	if est.ByType["minor_single_day"] != 2 {
		t.Errorf("ByType[minor_single_day] = %d, want 2", est.ByType["minor_single_day"])
	}
	if est.EstimatedCostUSD != 0.07 {
		t.Errorf("EstimatedCostUSD = %v, want 0.07", est.EstimatedCostUSD)
	}
}
