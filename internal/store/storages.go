package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
)

// Storages groups all server-side repositories into a single value that can
// be passed around the service layer. Currently it holds only
// [SyncRepository]; additional repositories can be added here as the feature
// set grows.
type Storages struct {
	// SyncRepository is the PostgreSQL-backed store for synced entities and
	// the idempotency ledger.
	SyncRepository SyncRepository
}

// NewStorages initialises the server storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens a PostgreSQL connection pool for the DSN in cfg.DB.DSN.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to a fresh
//     [SyncRepository].
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectPostgres(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		SyncRepository: NewSyncRepository(db, logger),
	}, nil
}
