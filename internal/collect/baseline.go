package collect

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"trafficpulse/internal/db"
	"trafficpulse/internal/tomtom"
)

// Baseline sampling happens six times a day for the venue group assigned to
// the current week of the month.
var BaselineTimeSlots = []string{"07:00", "12:00", "17:00", "19:00", "21:00", "23:00"}

const (
	baselineGroups = 4
	slotTolerance  = 15 * time.Minute
)

// GroupForDay maps a day of month to the venue group sampled that week:
// days 1-7 group 1, 8-14 group 2, 15-21 group 3, 22-31 group 4.
// Returns false for out-of-range days.
func GroupForDay(dayOfMonth int) (int, bool) {
	switch {
	case dayOfMonth >= 1 && dayOfMonth <= 7:
		return 1, true
	case dayOfMonth <= 14:
		return 2, true
	case dayOfMonth <= 21:
		return 3, true
	case dayOfMonth <= 31:
		return 4, true
	default:
		return 0, false
	}
}

// CurrentGroup returns the active venue group for the given date.
func CurrentGroup(t time.Time) (int, bool) {
	return GroupForDay(t.Day())
}

// AtTimeSlot reports whether t falls within the tolerance window of one of
// the fixed daily slots, and which slot.
func AtTimeSlot(t time.Time) (string, bool) {
	for _, slot := range BaselineTimeSlots {
		st, err := time.Parse("15:04", slot)
		if err != nil {
			continue
		}
		slotAt := time.Date(t.Year(), t.Month(), t.Day(), st.Hour(), st.Minute(), 0, 0, t.Location())
		diff := t.Sub(slotAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= slotTolerance {
			return slot, true
		}
	}
	return "", false
}

// ShouldCollectBaseline decides whether a baseline run is due at time t:
// the day must fall in an active group's week and the clock must be within
// 15 minutes of a slot.
func ShouldCollectBaseline(t time.Time) (bool, int, string) {
	group, ok := CurrentGroup(t)
	if !ok {
		return false, 0, ""
	}
	slot, ok := AtTimeSlot(t)
	if !ok {
		return false, group, ""
	}
	return true, group, slot
}

// SplitVenueGroups divides the id-ordered venue list into four contiguous,
// evenly-sized groups; the remainder lands in the last group.
func SplitVenueGroups(venues []db.Venue) [][]db.Venue {
	groups := make([][]db.Venue, baselineGroups)
	size := len(venues) / baselineGroups
	for i := 0; i < baselineGroups; i++ {
		start := i * size
		end := start + size
		if i == baselineGroups-1 {
			end = len(venues)
		}
		groups[i] = venues[start:end]
	}
	return groups
}

// BaselineResult summarizes one baseline run. Per-venue failures show up in
// the counts, never as an error.
type BaselineResult struct {
	Collected       bool   `json:"collected"`
	Reason          string `json:"reason,omitempty"`
	Group           int    `json:"group,omitempty"`
	TimeSlot        string `json:"time_slot,omitempty"`
	TotalVenues     int    `json:"total_venues"`
	VenuesProcessed int    `json:"venues_processed"`
	Measurements    int    `json:"measurements_collected"`
	APICalls        int    `json:"api_calls_made"`
}

// BaselineCollector runs scheduled baseline sampling over the active venue
// group. Sequential by design: one venue at a time, paced by the limiter.
type BaselineCollector struct {
	DB       *gorm.DB
	Client   *tomtom.Client
	MaxCalls int
	Limiter  *rate.Limiter

	// Now is replaceable in tests; defaults to time.Now.
	Now func() time.Time
}

func (c *BaselineCollector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run checks the schedule and, when due, samples every venue in the active
// group up to the call ceiling. A store failure listing venues is fatal for
// the run; anything per-venue is logged and skipped.
func (c *BaselineCollector) Run(ctx context.Context) (BaselineResult, error) {
	now := c.now()
	ok, group, slot := ShouldCollectBaseline(now)
	if !ok {
		// Every calendar day maps to a group, so the only way to miss is
		// the clock sitting between slots.
		reason := fmt.Sprintf("group %d week, but not at a collection time", group)
		log.Printf("baseline: skipping: %s", reason)
		return BaselineResult{Collected: false, Reason: reason, Group: group}, nil
	}

	log.Printf("baseline: collecting group %d at slot %s", group, slot)

	venues, err := db.ListVenues(c.DB)
	if err != nil {
		return BaselineResult{}, fmt.Errorf("list venues: %w", err)
	}

	groupVenues := SplitVenueGroups(venues)[group-1]
	result := BaselineResult{
		Collected:   true,
		Group:       group,
		TimeSlot:    slot,
		TotalVenues: len(groupVenues),
	}

	for i, venue := range groupVenues {
		if result.APICalls >= c.MaxCalls {
			log.Printf("baseline: reached max API calls (%d), stopping", c.MaxCalls)
			break
		}

		log.Printf("baseline: [%d/%d] %s", i+1, len(groupVenues), venue.Name)

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		point := tomtom.Point{Lat: venue.Latitude, Lon: venue.Longitude}
		m, err := c.Client.Measure(ctx, point, point, venue.Name)
		result.APICalls++
		apiCallsTotal.WithLabelValues("baseline").Inc()
		if err != nil {
			log.Printf("baseline: measuring %s: %v", venue.Name, err)
			collectionFailures.WithLabelValues("baseline", "vendor").Inc()
			continue
		}

		row := measurementRow(m, venue.ID, nil)
		row.IsBaseline = true
		row.BaselineType = "weekly"
		if err := db.InsertMeasurement(c.DB, row); err != nil {
			log.Printf("baseline: inserting measurement for %s: %v", venue.Name, err)
			collectionFailures.WithLabelValues("baseline", "store").Inc()
			continue
		}

		measurementsTotal.WithLabelValues("baseline").Inc()
		result.Measurements++
		result.VenuesProcessed++
	}

	log.Printf("baseline: processed %d/%d venues, %d measurements, %d API calls",
		result.VenuesProcessed, result.TotalVenues, result.Measurements, result.APICalls)

	return result, nil
}

// measurementRow converts a vendor measurement into a store row.
func measurementRow(m *tomtom.Measurement, venueID uint, eventID *uint) *db.TrafficMeasurement {
	row := &db.TrafficMeasurement{
		VenueID:            venueID,
		EventID:            eventID,
		MeasurementTime:    m.Time,
		TrafficLevel:       m.TrafficLevel,
		TravelTimeSeconds:  m.TravelTimeSeconds,
		TypicalTimeSeconds: m.TypicalTimeSeconds,
		OriginLat:          m.Origin.Lat,
		OriginLng:          m.Origin.Lon,
		DestinationLat:     m.Destination.Lat,
		DestinationLng:     m.Destination.Lon,
		DataSource:         m.DataSource,
		RawResponse:        m.Raw,
	}
	avgSpeed, typicalSpeed := m.AvgSpeedMph, m.TypicalSpeedMph
	row.AvgSpeedMph = &avgSpeed
	row.TypicalSpeedMph = &typicalSpeed
	if m.DistanceMiles > 0 {
		d := m.DistanceMiles
		row.DistanceMiles = &d
	}
	if m.Confidence > 0 {
		conf := m.Confidence
		row.Confidence = &conf
	}
	return row
}
