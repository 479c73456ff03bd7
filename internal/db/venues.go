package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertVenue inserts a venue keyed by name, updating coordinates, address
// and place id on conflict. Returns the venue id so callers can immediately
// attach events or measurements to it.
func UpsertVenue(db *gorm.DB, v *Venue) (uint, error) {
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "venue_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"address", "latitude", "longitude", "place_id", "updated_at",
		}),
	}).Create(v).Error
	if err != nil {
		return 0, err
	}

	if v.ID == 0 {
		// Conflict path on some drivers does not report the existing key;
		// re-read by the unique name.
		var existing Venue
		if err := db.Where("venue_name = ?", v.Name).First(&existing).Error; err != nil {
			return 0, err
		}
		v.ID = existing.ID
	}
	return v.ID, nil
}

// GetVenueByName returns the venue with the given name, or nil if absent.
func GetVenueByName(db *gorm.DB, name string) (*Venue, error) {
	var v Venue
	err := db.Where("venue_name = ?", name).Limit(1).Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

// ListVenues returns all venues in id order. The baseline scheduler depends
// on this ordering: groups are contiguous slices of the id-sorted list, so
// the rotation is stable across runs.
func ListVenues(db *gorm.DB) ([]Venue, error) {
	var venues []Venue
	err := db.Order("venue_id").Find(&venues).Error
	return venues, err
}

// VenueCount returns the number of venues.
func VenueCount(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&Venue{}).Count(&n).Error
	return n, err
}
