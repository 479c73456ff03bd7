// Package analysis turns raw traffic measurements into per-event impact
// results and fleet-level summaries.
package analysis

import (
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"

	"trafficpulse/internal/db"
)

// analysisWindow is how far either side of the event start measurements are
// considered part of the event.
const analysisWindow = 2 * time.Hour

// Stats describes one half of an event's measurement window. Averages are
// computed over non-null values only; a nil average means no usable values,
// which is distinct from an average of zero.
type Stats struct {
	Count         int      `json:"count"`
	AvgDelay      *float64 `json:"avg_delay,omitempty"`
	MaxDelay      *float64 `json:"max_delay,omitempty"`
	AvgSpeed      *float64 `json:"avg_speed,omitempty"`
	TrafficLevels []string `json:"traffic_levels,omitempty"`
}

// Impact holds the before/during deltas and the classified level.
type Impact struct {
	DelayIncrease    *float64 `json:"delay_increase,omitempty"`
	DelayIncreasePct *float64 `json:"delay_increase_pct,omitempty"`
	SpeedDecrease    *float64 `json:"speed_decrease,omitempty"`
	SpeedDecreasePct *float64 `json:"speed_decrease_pct,omitempty"`
	Level            string   `json:"level"`
}

// Result is the impact analysis for one event. HasData=false (with Reason)
// is the NoData outcome: it must stay distinguishable from a computed
// "no impact" classification.
type Result struct {
	HasData bool   `json:"has_data"`
	Reason  string `json:"reason,omitempty"`

	EventID   uint   `json:"event_id,omitempty"`
	EventName string `json:"event_name,omitempty"`
	Category  string `json:"category,omitempty"`
	VenueName string `json:"venue,omitempty"`

	Before *Stats `json:"before,omitempty"`
	During *Stats `json:"during,omitempty"`
	Impact Impact `json:"impact"`

	TotalMeasurements int `json:"total_measurements"`
}

// SplitMeasurements orders measurements chronologically and splits them at
// the midpoint index into before and during halves. Deliberately a
// count-based median split, NOT a time-based one: changing it to a time
// split would silently change every downstream statistic.
func SplitMeasurements(ms []db.TrafficMeasurement) (before, during []db.TrafficMeasurement) {
	sorted := make([]db.TrafficMeasurement, len(ms))
	copy(sorted, ms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MeasurementTime.Before(sorted[j].MeasurementTime)
	})
	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

func calcStats(ms []db.TrafficMeasurement) *Stats {
	if len(ms) == 0 {
		return nil
	}
	s := &Stats{Count: len(ms)}

	var delaySum, speedSum, maxDelay float64
	var delayN, speedN int
	for _, m := range ms {
		s.TrafficLevels = append(s.TrafficLevels, m.TrafficLevel)
		if m.DelayMinutes != nil {
			delaySum += *m.DelayMinutes
			if delayN == 0 || *m.DelayMinutes > maxDelay {
				maxDelay = *m.DelayMinutes
			}
			delayN++
		}
		if m.AvgSpeedMph != nil {
			speedSum += *m.AvgSpeedMph
			speedN++
		}
	}
	if delayN > 0 {
		avg := delaySum / float64(delayN)
		s.AvgDelay = &avg
		max := maxDelay
		s.MaxDelay = &max
	}
	if speedN > 0 {
		avg := speedSum / float64(speedN)
		s.AvgSpeed = &avg
	}
	return s
}

// ClassifyImpact maps a delay increase (minutes) to an impact level. The
// thresholds are strictly greater-than: exactly 5 classifies "high", not
// "severe"; exactly 0 and anything negative are "no impact".
func ClassifyImpact(delayIncrease float64) string {
	switch {
	case delayIncrease > 5:
		return "severe"
	case delayIncrease > 2:
		return "high"
	case delayIncrease > 1:
		return "moderate"
	case delayIncrease > 0:
		return "low"
	default:
		return "no impact"
	}
}

// AnalyzeMeasurements computes the impact result for one event given its
// window of measurements. Pure function; the store-aware entry points below
// feed it.
func AnalyzeMeasurements(event db.Event, venueName string, ms []db.TrafficMeasurement) Result {
	if len(ms) == 0 {
		return Result{HasData: false, Reason: "no traffic measurements available"}
	}

	beforeMs, duringMs := SplitMeasurements(ms)
	before := calcStats(beforeMs)
	during := calcStats(duringMs)

	var impact Impact
	if before != nil && during != nil {
		if before.AvgDelay != nil && during.AvgDelay != nil {
			inc := *during.AvgDelay - *before.AvgDelay
			impact.DelayIncrease = &inc
			// +1 in the denominator is a deliberate zero-avoidance fudge
			// kept for compatibility with historical results.
			pct := inc / (abs(*before.AvgDelay) + 1) * 100
			impact.DelayIncreasePct = &pct
		}
		if before.AvgSpeed != nil && during.AvgSpeed != nil {
			dec := *before.AvgSpeed - *during.AvgSpeed
			impact.SpeedDecrease = &dec
			if *before.AvgSpeed != 0 {
				pct := dec / *before.AvgSpeed * 100
				impact.SpeedDecreasePct = &pct
			}
		}
	}

	if impact.DelayIncrease != nil {
		impact.Level = ClassifyImpact(*impact.DelayIncrease)
	} else {
		impact.Level = "unknown"
	}

	return Result{
		HasData:           true,
		EventID:           event.ID,
		EventName:         event.Name,
		Category:          event.Category,
		VenueName:         venueName,
		Before:            before,
		During:            during,
		Impact:            impact,
		TotalMeasurements: len(ms),
	}
}

// Analyzer reads events and measurements from the store and runs the
// correlation. Impact results are never persisted; they are recomputed each
// time they are needed.
type Analyzer struct {
	DB *gorm.DB
}

// AnalyzeEvent computes the impact result for one event id. Events that do
// not exist, have no venue, or no start time come back as NoData results.
func (a *Analyzer) AnalyzeEvent(eventID uint) (Result, error) {
	event, err := db.GetEvent(a.DB, eventID)
	if err != nil {
		return Result{}, fmt.Errorf("load event %d: %w", eventID, err)
	}
	if event == nil {
		return Result{HasData: false, Reason: "event not found"}, nil
	}
	if event.VenueID == nil {
		return Result{HasData: false, Reason: "event has no venue"}, nil
	}
	start, ok := db.EventStartAt(*event)
	if !ok {
		return Result{HasData: false, Reason: "event has no start time"}, nil
	}

	venueName := event.VenueName
	if venue, err := venueByID(a.DB, *event.VenueID); err == nil && venue != nil {
		venueName = venue.Name
	}

	ms, err := db.MeasurementsForWindow(a.DB, *event.VenueID,
		start.Add(-analysisWindow), start.Add(analysisWindow))
	if err != nil {
		return Result{}, fmt.Errorf("load measurements for event %d: %w", eventID, err)
	}

	return AnalyzeMeasurements(*event, venueName, ms), nil
}

// AnalyzeAll runs the correlation for every event that has measurements in
// its analysis window. Per-event failures are logged and skipped.
func (a *Analyzer) AnalyzeAll() ([]Result, error) {
	ids, err := db.EventIDsWithMeasurements(a.DB, 0)
	if err != nil {
		return nil, fmt.Errorf("list events with measurements: %w", err)
	}
	log.Printf("analysis: found %d events with traffic data", len(ids))

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		res, err := a.AnalyzeEvent(id)
		if err != nil {
			log.Printf("analysis: event %d: %v", id, err)
			continue
		}
		if res.HasData {
			results = append(results, res)
		}
	}
	log.Printf("analysis: analyzed %d events", len(results))
	return results, nil
}

func venueByID(gdb *gorm.DB, id uint) (*db.Venue, error) {
	var v db.Venue
	if err := gdb.Where("venue_id = ?", id).Limit(1).Find(&v).Error; err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
