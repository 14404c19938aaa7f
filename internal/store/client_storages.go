package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	clientmigrations "github.com/MKhiriev/go-practice-sync/migrations/client"
)

// ClientStorages groups all client-side storage repositories into a single
// value that can be passed around the service layer. Currently it holds only
// [LocalSyncRepository]; additional repositories can be added here as the
// feature set grows.
type ClientStorages struct {
	// SyncRepository is the SQLite-backed store for cached entities, the
	// outbox and the sync checkpoint kept locally on the device.
	SyncRepository LocalSyncRepository
}

// NewClientStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending local schema migrations.
//  3. Constructs and returns a [ClientStorages] value wired to a fresh
//     [LocalSyncRepository].
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewClientStorages(cfg config.ClientStorage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := clientmigrations.Migrate(db.DB); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ClientStorages{
		SyncRepository: NewLocalSyncRepository(db, logger),
	}, nil
}
