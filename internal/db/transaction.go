package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/stwalsh4118/reel/internal/logger"
)

// WithTransaction runs fn in a transaction. Any error or panic rolls it back;
// raw SQLite errors come back mapped to the package's sentinels with the
// driver error still wrapped.
func (db *DB) WithTransaction(ctx context.Context, fn func(*gorm.DB) error) error {
	err := db.DB.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}

	logger.Log.Debug().
		Err(err).
		Msg("Transaction rolled back")

	if mapped := MapGormError(err); mapped != err {
		return fmt.Errorf("transaction rolled back: %w: %w", mapped, err)
	}
	return fmt.Errorf("transaction rolled back: %w", err)
}
