package db

import (
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventKey struct {
	Name      string
	StartDate string
	VenueName string
}

// DedupeEvents removes in-batch duplicates on (name, start date, venue name),
// keeping the first occurrence. Scrapers routinely emit the same event twice
// per page; a multi-row upsert cannot touch the same conflict key twice in
// one statement.
func DedupeEvents(events []Event) []Event {
	seen := make(map[eventKey]bool, len(events))
	unique := make([]Event, 0, len(events))
	for _, e := range events {
		k := eventKey{Name: e.Name, StartDate: e.StartDate.Format("2006-01-02"), VenueName: e.VenueName}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, e)
	}
	return unique
}

// UpsertEvents inserts a batch of events with last-write-wins semantics on
// the (event_name, event_start_date, venue_name) natural key. The conflict
// target is idx_events_natural_key on the Event model; without that unique
// index the ON CONFLICT clause has nothing to arbitrate and duplicates
// slip through. Returns the number of unique rows processed, not the number
// physically changed.
func UpsertEvents(db *gorm.DB, events []Event) (int, error) {
	if len(events) == 0 {
		log.Printf("no events to upsert")
		return 0, nil
	}

	unique := DedupeEvents(events)
	if removed := len(events) - len(unique); removed > 0 {
		log.Printf("removed %d duplicate events from batch", removed)
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_name"}, {Name: "event_start_date"}, {Name: "venue_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"venue_id", "event_start_time", "event_end_date", "event_end_time",
			"is_multi_day", "category", "cost", "sponsor", "contact",
			"source_url", "updated_at",
		}),
	}).Create(&unique).Error
	if err != nil {
		return 0, err
	}
	return len(unique), nil
}

// EventCount returns the total number of events.
func EventCount(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&Event{}).Count(&n).Error
	return n, err
}

// EventsByDateRange returns events whose start date falls in [from, to],
// ordered by start date.
func EventsByDateRange(db *gorm.DB, from, to time.Time) ([]Event, error) {
	var events []Event
	err := db.Where("event_start_date BETWEEN ? AND ?", from, to).
		Order("event_start_date").Find(&events).Error
	return events, err
}

// EventsByCategory returns all events in a category, ordered by start date.
func EventsByCategory(db *gorm.DB, category string) ([]Event, error) {
	var events []Event
	err := db.Where("category = ?", category).Order("event_start_date").Find(&events).Error
	return events, err
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// CategoryCounts returns event counts per category, most common first.
func CategoryCounts(db *gorm.DB) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := db.Model(&Event{}).
		Select("category, count(*) as count").
		Group("category").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

// RecentEvents returns the most recently inserted or updated events.
func RecentEvents(db *gorm.DB, limit int) ([]Event, error) {
	var events []Event
	err := db.Order("updated_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

// CollectableEvent is an event joined with its venue coordinates, as needed
// by the event collector.
type CollectableEvent struct {
	EventID   uint      `gorm:"column:event_id"`
	EventName string    `gorm:"column:event_name"`
	StartDate time.Time `gorm:"column:event_start_date"`
	StartTime string    `gorm:"column:event_start_time"`
	Category  string    `gorm:"column:category"`
	VenueID   uint      `gorm:"column:venue_id"`
	VenueName string    `gorm:"column:venue_name"`
	Latitude  float64   `gorm:"column:latitude"`
	Longitude float64   `gorm:"column:longitude"`
}

// EventsInCollectionWindow returns today's timed events whose start time lies
// within the live collection window: two hours back to two hours (plus the
// look-ahead) forward of now. Multi-day events only match on their first day
// because only the start date is stored per row.
func EventsInCollectionWindow(db *gorm.DB, now time.Time, lookAhead time.Duration) ([]CollectableEvent, error) {
	var events []CollectableEvent
	err := db.Raw(`
		SELECT e.event_id, e.event_name, e.event_start_date, e.event_start_time,
		       e.category, v.venue_id, v.venue_name, v.latitude, v.longitude
		FROM events e
		JOIN venue_locations v ON e.venue_id = v.venue_id
		WHERE e.event_start_date = ?::date
		  AND e.event_start_time IS NOT NULL
		  AND e.event_start_time BETWEEN ?::time - INTERVAL '2 hours'
		                             AND ?::time + INTERVAL '2 hours' + ?::interval
		ORDER BY e.event_start_time`,
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		now.Format("15:04:05"),
		lookAhead.String(),
	).Scan(&events).Error
	return events, err
}

// EventIDsWithMeasurements returns ids of timed events that have at least one
// traffic measurement at their venue within the analysis window (event start
// time plus or minus two hours), most recent event first.
func EventIDsWithMeasurements(db *gorm.DB, limit int) ([]uint, error) {
	sql := `
		SELECT DISTINCT e.event_id, e.event_start_date
		FROM events e
		JOIN traffic_measurements tm ON e.venue_id = tm.venue_id
		WHERE e.event_start_time IS NOT NULL
		  AND tm.measurement_time BETWEEN
		      (e.event_start_date + e.event_start_time - INTERVAL '2 hours') AND
		      (e.event_start_date + e.event_start_time + INTERVAL '2 hours')
		ORDER BY e.event_start_date DESC`

	q := db.Raw(sql)
	if limit > 0 {
		q = db.Raw(sql+" LIMIT ?", limit)
	}

	type row struct {
		EventID uint `gorm:"column:event_id"`
	}
	var rows []row
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EventID)
	}
	return ids, nil
}

// EventVenueNames returns the distinct non-empty venue names appearing on
// events, the candidate list for venue geocoding.
func EventVenueNames(db *gorm.DB) ([]string, error) {
	var names []string
	err := db.Model(&Event{}).
		Distinct("venue_name").
		Where("venue_name IS NOT NULL AND venue_name != ''").
		Order("venue_name").
		Pluck("venue_name", &names).Error
	return names, err
}

// LinkEventsToVenues fills events.venue_id by venue name for events not yet
// linked. Run after geocoding creates venue rows so that collection and
// analysis can join on the id. Returns the number of events linked.
func LinkEventsToVenues(db *gorm.DB) (int64, error) {
	res := db.Exec(`
		UPDATE events e
		SET venue_id = v.venue_id
		FROM venue_locations v
		WHERE e.venue_name = v.venue_name
		  AND e.venue_id IS NULL`)
	return res.RowsAffected, res.Error
}

// GetEvent returns the event with the given id, or nil if absent.
func GetEvent(db *gorm.DB, id uint) (*Event, error) {
	var e Event
	err := db.Where("event_id = ?", id).Limit(1).Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

// EventStartAt combines an event's start date and optional start time into a
// wall-clock instant. Returns false when the event has no start time.
func EventStartAt(e Event) (time.Time, bool) {
	if e.StartTime == nil || *e.StartTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04:05", *e.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	d := e.StartDate
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, d.Location()), true
}
