// Package database opens the application database and migrates its tables.
package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// ErrNoDatabaseURL is returned when DATABASE_URL is empty.
var ErrNoDatabaseURL = errors.New("DATABASE_URL not set")

// Connect opens a Postgres connection pool.
func Connect(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, ErrNoDatabaseURL
	}
	return Open(postgres.Open(databaseURL))
}

// Open configures a gorm handle over any dialector.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// Models lists every table Migrate creates.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.OAuthProvider{},
		&models.ConversionLog{},
		&storage.Blob{},
	}
}

// Migrate creates or updates the application tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
