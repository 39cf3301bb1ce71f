package db

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/instrument/gormtrace"
)

// Config holds database connection configuration
type Config struct {
	// URL is the database connection URL (defaults to the environment)
	URL string
	// Instrument installs the sqlbee query instrumentation plugin
	Instrument bool
}

// Connect establishes a database connection.
// If no URL is provided, it reads from the environment via URL().
func Connect(cfg Config) (*gorm.DB, error) {
	dbURL := cfg.URL
	if dbURL == "" {
		dbURL = URL()
	}
	if dbURL == "" {
		return nil, fmt.Errorf("SQLBEE_DATABASE_URL or DATABASE_URL environment variable is required")
	}

	// Default to silent logging unless SQLBEE_LOG_LEVEL=debug is set
	logMode := logger.Silent
	if os.Getenv("SQLBEE_LOG_LEVEL") == "debug" {
		logMode = logger.Info
	}

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Instrument {
		opts := gormtrace.FromConfig(config.Get())
		if err := db.Use(gormtrace.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("failed to install instrumentation: %w", err)
		}
	}

	return db, nil
}

// URL returns the database URL from SQLBEE_DATABASE_URL, falling back to
// DATABASE_URL. Returns empty string if neither is set.
func URL() string {
	if url := os.Getenv("SQLBEE_DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("DATABASE_URL")
}
