package collect

import (
	"math"
	"strings"

	"trafficpulse/internal/db"
)

// Major event categories: sampled in four directions, before and after.
var majorCategories = []string{
	"Sports",
	"Sports/Fitness",
	"Festival",
	"Festivals & Special Events",
	"Music",
	"Concerts & Music",
}

const costPerCallUSD = 0.007

// Plan is the sampling strategy for one event: which directions to sample,
// whether to collect after as well as before, and the resulting call budget.
type Plan struct {
	Collect bool   `json:"collect"`
	Reason  string `json:"reason,omitempty"`
	Type    string `json:"type,omitempty"`

	CollectBefore bool `json:"collect_before"`
	CollectAfter  bool `json:"collect_after"`
	HoursBefore   int  `json:"hours_before,omitempty"`
	HoursAfter    int  `json:"hours_after,omitempty"`

	NumDirections  int      `json:"num_directions"`
	Directions     []string `json:"directions,omitempty"`
	EstimatedCalls int      `json:"estimated_calls"`
}

// IsMajorCategory reports whether a category contains any major keyword,
// case-insensitively.
func IsMajorCategory(category string) bool {
	lower := strings.ToLower(category)
	for _, cat := range majorCategories {
		if strings.Contains(lower, strings.ToLower(cat)) {
			return true
		}
	}
	return false
}

// PlanFor computes the collection plan for an event. Pure function, no I/O.
// Multi-day events are planned from their first day only; the plan is not
// repeated for subsequent days.
func PlanFor(e db.Event) Plan {
	if e.StartTime == nil || *e.StartTime == "" {
		return Plan{Collect: false, Reason: "no event time available"}
	}

	major := IsMajorCategory(e.Category)

	planType := "single_day"
	if e.IsMultiDay {
		planType = "multi_day"
	}

	if major {
		return Plan{
			Collect:        true,
			Type:           "major_" + planType,
			CollectBefore:  true,
			CollectAfter:   true,
			HoursBefore:    1,
			HoursAfter:     1,
			NumDirections:  4,
			Directions:     []string{"North", "South", "East", "West"},
			EstimatedCalls: 8, // 4 before + 4 after
		}
	}
	return Plan{
		Collect:        true,
		Type:           "minor_" + planType,
		CollectBefore:  true,
		CollectAfter:   false,
		HoursBefore:    1,
		NumDirections:  2,
		Directions:     []string{"North", "South"},
		EstimatedCalls: 2, // 2 before only
	}
}

// CostEstimate totals the planned vendor API calls for a set of events.
type CostEstimate struct {
	TotalCalls       int            `json:"total_calls"`
	ByType           map[string]int `json:"by_type"`
	EventsProcessed  int            `json:"events_processed"`
	EventsSkipped    int            `json:"events_skipped"`
	EstimatedCostUSD float64        `json:"estimated_cost_usd"`
}

// EstimateCalls sums estimated API calls across events, grouped by plan type.
func EstimateCalls(events []db.Event) CostEstimate {
	est := CostEstimate{ByType: make(map[string]int), EventsProcessed: len(events)}
	for _, e := range events {
		plan := PlanFor(e)
		if !plan.Collect {
			est.EventsSkipped++
			continue
		}
		est.TotalCalls += plan.EstimatedCalls
		est.ByType[plan.Type] += plan.EstimatedCalls
	}
	est.EstimatedCostUSD = math.Round(float64(est.TotalCalls)*costPerCallUSD*100) / 100
	return est
}
