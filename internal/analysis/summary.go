package analysis

import "sort"

const topEventCount = 10

// TopEvent is one row of the top-impact ranking, matching the column
// contract of the event_impact_summary view.
type TopEvent struct {
	EventName     string  `json:"event_name"`
	Category      string  `json:"category"`
	Venue         string  `json:"venue"`
	DelayIncrease float64 `json:"delay_increase"`
	ImpactLevel   string  `json:"impact_level"`
}

// Summary rolls per-event impact results up to fleet level.
type Summary struct {
	NoData bool `json:"no_data,omitempty"`

	TotalEvents       int                `json:"total_events_analyzed"`
	ImpactLevels      map[string]int     `json:"impact_levels"`
	ImpactLevelPcts   map[string]float64 `json:"impact_level_pcts"`
	CategoryAvgImpact map[string]float64 `json:"category_avg_impact"`
	TopEvents         []TopEvent         `json:"top_impact_events"`
}

// Summarize aggregates impact results: counts and percentages per level,
// mean delay increase per category (over events that have one), and the
// top-N events ranked by delay increase. Empty input yields the NoData
// sentinel. Events without a delay increase contribute to level counts but
// are excluded from category averages and the ranking.
func Summarize(results []Result) Summary {
	if len(results) == 0 {
		return Summary{NoData: true}
	}

	s := Summary{
		TotalEvents:       len(results),
		ImpactLevels:      make(map[string]int),
		ImpactLevelPcts:   make(map[string]float64),
		CategoryAvgImpact: make(map[string]float64),
	}

	for _, r := range results {
		level := r.Impact.Level
		if level == "" {
			level = "unknown"
		}
		s.ImpactLevels[level]++
	}
	for level, count := range s.ImpactLevels {
		s.ImpactLevelPcts[level] = float64(count) * 100 / float64(len(results))
	}

	categoryDelays := make(map[string][]float64)
	for _, r := range results {
		if r.Impact.DelayIncrease != nil {
			categoryDelays[r.Category] = append(categoryDelays[r.Category], *r.Impact.DelayIncrease)
		}
	}
	for cat, delays := range categoryDelays {
		var sum float64
		for _, d := range delays {
			sum += d
		}
		s.CategoryAvgImpact[cat] = sum / float64(len(delays))
	}

	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Impact.DelayIncrease != nil {
			ranked = append(ranked, r)
		}
	}
	// Stable: ties keep their original input order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Impact.DelayIncrease > *ranked[j].Impact.DelayIncrease
	})
	if len(ranked) > topEventCount {
		ranked = ranked[:topEventCount]
	}
	for _, r := range ranked {
		s.TopEvents = append(s.TopEvents, TopEvent{
			EventName:     r.EventName,
			Category:      r.Category,
			Venue:         r.VenueName,
			DelayIncrease: *r.Impact.DelayIncrease,
			ImpactLevel:   r.Impact.Level,
		})
	}

	return s
}
