package db

import (
	"time"

	"gorm.io/gorm"
)

// Normalize rederives the columns that must stay consistent with the rest of
// the row: delay from the two travel times, and the day/hour pattern columns
// from the measurement timestamp.
func (m *TrafficMeasurement) Normalize() {
	if m.TravelTimeSeconds != 0 || m.TypicalTimeSeconds != 0 {
		delay := float64(m.TravelTimeSeconds-m.TypicalTimeSeconds) / 60.0
		m.DelayMinutes = &delay
	}
	dow := int(m.MeasurementTime.Weekday())
	hour := m.MeasurementTime.Hour()
	m.DayOfWeek = &dow
	m.HourOfDay = &hour
}

// InsertMeasurement stores a traffic sample. Always an insert: each sample is
// a new fact. Inserts are not idempotent, so a crashed-and-retried collection
// run can duplicate rows; replays are accepted rather than deduplicated.
func InsertMeasurement(db *gorm.DB, m *TrafficMeasurement) error {
	m.Normalize()
	return db.Create(m).Error
}

// MeasurementsForWindow returns a venue's measurements within [from, to],
// oldest first.
func MeasurementsForWindow(db *gorm.DB, venueID uint, from, to time.Time) ([]TrafficMeasurement, error) {
	var ms []TrafficMeasurement
	err := db.Where("venue_id = ? AND measurement_time BETWEEN ? AND ?", venueID, from, to).
		Order("measurement_time").Find(&ms).Error
	return ms, err
}

// RecentMeasurements returns a venue's latest measurements, newest first.
func RecentMeasurements(db *gorm.DB, venueID uint, limit int) ([]TrafficMeasurement, error) {
	var ms []TrafficMeasurement
	err := db.Where("venue_id = ?", venueID).
		Order("measurement_time DESC").Limit(limit).Find(&ms).Error
	return ms, err
}

// MeasurementCount returns the total number of measurements.
func MeasurementCount(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&TrafficMeasurement{}).Count(&n).Error
	return n, err
}

// BackfillEventIDs links historical non-baseline measurements to the closest
// event at the same venue whose start lies within two hours of the sample.
// One-time repair for rows collected before event linking existed. Returns
// the number of rows updated.
func BackfillEventIDs(db *gorm.DB) (int64, error) {
	res := db.Exec(`
		WITH potential_matches AS (
			SELECT tm.measurement_id,
			       e.event_id,
			       ROW_NUMBER() OVER (
			           PARTITION BY tm.measurement_id
			           ORDER BY ABS(EXTRACT(EPOCH FROM (
			               tm.measurement_time - (e.event_start_date + e.event_start_time)
			           )))
			       ) AS match_rank
			FROM traffic_measurements tm
			JOIN events e ON tm.venue_id = e.venue_id
			WHERE tm.event_id IS NULL
			  AND tm.is_baseline = FALSE
			  AND e.event_start_time IS NOT NULL
			  AND tm.measurement_time BETWEEN
			      (e.event_start_date + e.event_start_time - INTERVAL '2 hours') AND
			      (e.event_start_date + e.event_start_time + INTERVAL '2 hours')
		)
		UPDATE traffic_measurements tm
		SET event_id = pm.event_id
		FROM potential_matches pm
		WHERE tm.measurement_id = pm.measurement_id
		  AND pm.match_rank = 1`)
	return res.RowsAffected, res.Error
}

// BackfillTimeMetadata fills day_of_week and hour_of_day for rows inserted
// before those columns existed, set-based in SQL. Returns rows updated.
func BackfillTimeMetadata(db *gorm.DB) (int64, error) {
	res := db.Exec(`
		UPDATE traffic_measurements
		SET day_of_week = EXTRACT(DOW FROM measurement_time)::INTEGER,
		    hour_of_day = EXTRACT(HOUR FROM measurement_time)::INTEGER
		WHERE day_of_week IS NULL OR hour_of_day IS NULL`)
	return res.RowsAffected, res.Error
}

// BaselinePattern is the mean baseline delay for one (day-of-week, hour)
// cell, the column contract behind the venue_baseline_patterns view.
type BaselinePattern struct {
	VenueID   uint    `gorm:"column:venue_id" json:"venue_id"`
	DayOfWeek int     `gorm:"column:day_of_week" json:"day_of_week"`
	HourOfDay int     `gorm:"column:hour_of_day" json:"hour_of_day"`
	Samples   int64   `gorm:"column:samples" json:"samples"`
	AvgDelay  float64 `gorm:"column:avg_delay" json:"avg_delay_minutes"`
	AvgSpeed  float64 `gorm:"column:avg_speed" json:"avg_speed_mph"`
}

// BaselinePatterns aggregates a venue's baseline measurements by day-of-week
// and hour-of-day.
func BaselinePatterns(db *gorm.DB, venueID uint) ([]BaselinePattern, error) {
	var rows []BaselinePattern
	err := db.Model(&TrafficMeasurement{}).
		Select(`venue_id, day_of_week, hour_of_day,
			count(*) AS samples,
			AVG(delay_minutes) AS avg_delay,
			AVG(avg_speed_mph) AS avg_speed`).
		Where("venue_id = ? AND is_baseline = ? AND day_of_week IS NOT NULL AND hour_of_day IS NOT NULL", venueID, true).
		Group("venue_id, day_of_week, hour_of_day").
		Order("day_of_week, hour_of_day").
		Scan(&rows).Error
	return rows, err
}
