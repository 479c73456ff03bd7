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

// Fixed collection offsets relative to event start, in minutes. The driver
// runs every 30 minutes; a 15-minute tolerance around each offset guarantees
// every offset is hit exactly once per cadence.
var collectionOffsets = []int{-120, -90, -60, -30, 0, 30, 60, 90, 120}

const offsetTolerance = 15 // minutes

// Decision is the event scheduler's answer for one event at one instant.
type Decision struct {
	Collect bool   `json:"collect"`
	Window  string `json:"window,omitempty"` // before / during / after
	Offset  int    `json:"collection_point,omitempty"`
	Reason  string `json:"reason"`
}

// ShouldCollectEvent decides whether now falls on one of the fixed offsets
// around the event start. Offsets below -15 label the sample "before", above
// +15 "after", otherwise "during".
func ShouldCollectEvent(eventStart, now time.Time) Decision {
	// Minutes until the event; positive while the event is still ahead.
	diff := eventStart.Sub(now).Minutes()

	for _, target := range collectionOffsets {
		d := diff - float64(target)
		if d < 0 {
			d = -d
		}
		if d > offsetTolerance {
			continue
		}

		window := "during"
		if target < -offsetTolerance {
			window = "before"
		} else if target > offsetTolerance {
			window = "after"
		}

		return Decision{
			Collect: true,
			Window:  window,
			Offset:  target,
			Reason:  fmt.Sprintf("collection point at %d min from event (%s)", target, window),
		}
	}

	return Decision{
		Collect: false,
		Reason:  fmt.Sprintf("not at a collection point (event in %.0f min)", diff),
	}
}

// EventResult summarizes one event-collection run.
type EventResult struct {
	EventsChecked   int `json:"events_checked"`
	EventsCollected int `json:"events_collected"`
	Measurements    int `json:"measurements_collected"`
	APICalls        int `json:"api_calls_made"`
}

// EventCollector samples traffic at venues of events currently inside their
// collection window, one point measurement per due event.
type EventCollector struct {
	DB       *gorm.DB
	Client   *tomtom.Client
	MaxCalls int
	Limiter  *rate.Limiter

	Now func() time.Time
}

func (c *EventCollector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run finds today's events in the live window and measures traffic for each
// that sits on a collection offset, up to the call ceiling. Per-event vendor
// or store failures are logged and skipped.
func (c *EventCollector) Run(ctx context.Context) (EventResult, error) {
	now := c.now()

	events, err := db.EventsInCollectionWindow(c.DB, now, 30*time.Minute)
	if err != nil {
		return EventResult{}, fmt.Errorf("list events in window: %w", err)
	}

	result := EventResult{EventsChecked: len(events)}
	if len(events) == 0 {
		log.Printf("events: no events need collection at this time")
		return result, nil
	}
	log.Printf("events: found %d events in collection window", len(events))

	for _, event := range events {
		start, ok := combineDateTime(event.StartDate, event.StartTime)
		if !ok {
			log.Printf("events: %s: unparseable start time %q, skipping", event.EventName, event.StartTime)
			continue
		}

		decision := ShouldCollectEvent(start, now)
		log.Printf("events: %s at %s: %s", event.EventName, event.StartTime, decision.Reason)
		if !decision.Collect {
			continue
		}

		if result.APICalls >= c.MaxCalls {
			log.Printf("events: reached max API calls (%d), stopping", c.MaxCalls)
			break
		}

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		point := tomtom.Point{Lat: event.Latitude, Lon: event.Longitude}
		m, err := c.Client.Measure(ctx, point, point, event.EventName)
		result.APICalls++
		apiCallsTotal.WithLabelValues("event").Inc()
		if err != nil {
			log.Printf("events: measuring %s: %v", event.EventName, err)
			collectionFailures.WithLabelValues("event", "vendor").Inc()
			continue
		}

		eventID := event.EventID
		row := measurementRow(m, event.VenueID, &eventID)
		if err := db.InsertMeasurement(c.DB, row); err != nil {
			log.Printf("events: inserting measurement for %s: %v", event.EventName, err)
			collectionFailures.WithLabelValues("event", "store").Inc()
			continue
		}

		measurementsTotal.WithLabelValues("event").Inc()
		result.Measurements++
		result.EventsCollected++
	}

	log.Printf("events: checked %d, collected %d, %d measurements, %d API calls",
		result.EventsChecked, result.EventsCollected, result.Measurements, result.APICalls)

	return result, nil
}

// combineDateTime merges a date with a "15:04:05" time-of-day string.
func combineDateTime(date time.Time, clock string) (time.Time, bool) {
	layouts := []string{"15:04:05", "15:04:05.000000", "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, date.Location()), true
		}
	}
	return time.Time{}, false
}
