package db

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trafficpulse/internal/config"
)

// Connect opens a GORM connection to PostgreSQL from the discrete DB_*
// settings and migrates the three tables. The returned *gorm.DB is backed by
// a pooled connection; callers run each logical operation as its own
// short-lived statement so a pooling proxy never sees a held transaction.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBName == "" || cfg.DBUser == "" {
		return nil, errors.New("DB_NAME and DB_USER are required")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Venue{}, &Event{}, &TrafficMeasurement{}); err != nil {
		return nil, err
	}

	return db, nil
}
