package db

import (
	"time"

	"gorm.io/datatypes"
)

// Venue is a physical location events happen at. Rows are created by
// geocoding or first-seen insertion and updated on re-geocoding; they are
// never deleted.
type Venue struct {
	ID uint `gorm:"primaryKey;column:venue_id" json:"venue_id"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Name      string  `gorm:"column:venue_name;uniqueIndex;size:255;not null" json:"venue_name"`
	Address   string  `gorm:"size:512" json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// PlaceID is the geocoder's stable identifier for this location.
	PlaceID string `gorm:"column:place_id;size:255" json:"place_id,omitempty"`
}

func (Venue) TableName() string { return "venue_locations" }

// Event is a scraped city event. (Name, StartDate, VenueName) is the logical
// primary key: re-scraping the same event updates the row instead of
// duplicating it.
type Event struct {
	ID uint `gorm:"primaryKey;column:event_id" json:"event_id"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Name      string    `gorm:"column:event_name;size:512;not null;uniqueIndex:idx_events_natural_key,priority:1" json:"event_name"`
	StartDate time.Time `gorm:"column:event_start_date;type:date;not null;uniqueIndex:idx_events_natural_key,priority:2" json:"event_start_date"`
	VenueName string    `gorm:"column:venue_name;size:255;uniqueIndex:idx_events_natural_key,priority:3" json:"venue_name"`

	VenueID *uint `gorm:"column:venue_id;index" json:"venue_id,omitempty"`

	// StartTime is the local time of day in "15:04:05" form. Events without
	// one cannot be planned for collection.
	StartTime *string    `gorm:"column:event_start_time;type:time" json:"event_start_time,omitempty"`
	EndDate   *time.Time `gorm:"column:event_end_date;type:date" json:"event_end_date,omitempty"`
	EndTime   *string    `gorm:"column:event_end_time;type:time" json:"event_end_time,omitempty"`

	IsMultiDay bool   `gorm:"column:is_multi_day" json:"is_multi_day"`
	Category   string `gorm:"size:128;index" json:"category"`
	Cost       string `gorm:"size:128" json:"cost,omitempty"`
	Sponsor    string `gorm:"size:255" json:"sponsor,omitempty"`
	Contact    string `gorm:"size:255" json:"contact,omitempty"`
	SourceURL  string `gorm:"column:source_url;size:1024" json:"source_url,omitempty"`
}

func (Event) TableName() string { return "events" }

// TrafficMeasurement is one vendor traffic sample near a venue. Rows are
// insert-only: each sample is a new fact, never updated after insertion
// except by the one-time backfill operations.
type TrafficMeasurement struct {
	ID uint `gorm:"primaryKey;column:measurement_id" json:"measurement_id"`

	CreatedAt time.Time `json:"-"`

	VenueID uint  `gorm:"column:venue_id;index;not null" json:"venue_id"`
	EventID *uint `gorm:"column:event_id;index" json:"event_id,omitempty"` // nil = baseline or not yet linked

	MeasurementTime time.Time `gorm:"column:measurement_time;index;not null" json:"measurement_time"`

	// TrafficLevel is light/moderate/heavy/severe, classified from delay.
	TrafficLevel string `gorm:"column:traffic_level;size:16" json:"traffic_level"`

	AvgSpeedMph     *float64 `gorm:"column:avg_speed_mph" json:"avg_speed_mph,omitempty"`
	TypicalSpeedMph *float64 `gorm:"column:typical_speed_mph" json:"typical_speed_mph,omitempty"`

	TravelTimeSeconds  int `gorm:"column:travel_time_seconds" json:"travel_time_seconds"`
	TypicalTimeSeconds int `gorm:"column:typical_time_seconds" json:"typical_time_seconds"`

	// DelayMinutes is always (TravelTimeSeconds-TypicalTimeSeconds)/60;
	// InsertMeasurement rederives it so the column can never disagree with
	// the travel times.
	DelayMinutes *float64 `gorm:"column:delay_minutes" json:"delay_minutes,omitempty"`

	OriginLat      float64 `gorm:"column:origin_lat" json:"origin_lat"`
	OriginLng      float64 `gorm:"column:origin_lng" json:"origin_lng"`
	DestinationLat float64 `gorm:"column:destination_lat" json:"destination_lat"`
	DestinationLng float64 `gorm:"column:destination_lng" json:"destination_lng"`

	DistanceMiles *float64 `gorm:"column:distance_miles" json:"distance_miles,omitempty"`
	Confidence    *float64 `gorm:"column:confidence" json:"confidence,omitempty"`

	IsBaseline   bool   `gorm:"column:is_baseline" json:"is_baseline"`
	BaselineType string `gorm:"column:baseline_type;size:32" json:"baseline_type,omitempty"`

	// DataSource is the vendor name, or "sample_data" for seeded rows.
	DataSource string `gorm:"column:data_source;size:32" json:"data_source"`

	// DayOfWeek (0=Sunday) and HourOfDay are derived from MeasurementTime at
	// insert time for pattern analysis.
	DayOfWeek *int `gorm:"column:day_of_week" json:"day_of_week,omitempty"`
	HourOfDay *int `gorm:"column:hour_of_day" json:"hour_of_day,omitempty"`

	// RawResponse keeps the vendor JSON verbatim for forensic replay.
	RawResponse datatypes.JSON `gorm:"column:raw_response;type:jsonb" json:"-"`
}

func (TrafficMeasurement) TableName() string { return "traffic_measurements" }
