// Package db persists the media probe cache in SQLite through GORM.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns          = 25
	maxIdleConns          = 5
	connMaxLifetime       = 5 * time.Minute
	defaultConnectTimeout = 5 * time.Second
)

// Options tunes the SQLite connection
type Options struct {
	EnableWAL      bool
	ConnectTimeout time.Duration
}

// DB wraps a GORM database connection
type DB struct {
	*gorm.DB
}

// New opens the probe cache database at dbPath with WAL journaling.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*DB, error) {
	return Open(dbPath, Options{EnableWAL: true, ConnectTimeout: defaultConnectTimeout})
}

// Open opens the database at dbPath with the given options
func Open(dbPath string, opts Options) (*DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on", dbPath)
	if opts.EnableWAL {
		dsn += "&_journal_mode=WAL"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		// Disable default transaction for better performance
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: gormDB}, nil
}

// Health checks database connectivity
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// GetSQLDB returns the underlying sql.DB for migrations
func (db *DB) GetSQLDB() (*sql.DB, error) {
	return db.DB.DB()
}
