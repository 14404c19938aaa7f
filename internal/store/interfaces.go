package store

import (
	"context"

	"github.com/MKhiriev/go-practice-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// ErrorClassificator decides whether a failed database operation is worth
// retrying. Implementations inspect driver-specific error values; see
// [PostgresErrorClassifier].
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}

// SyncRepository is the server-side store for synced entities, their update
// stream and the idempotency ledger.
type SyncRepository interface {
	// GetEntities returns the current rows for the given entity ids owned by
	// ownerID. Ids with no row are simply absent from the result.
	GetEntities(ctx context.Context, ownerID int64, entityIDs []string) ([]models.SyncedEntity, error)

	// ListEntitiesSince returns a page of the owner's update stream strictly
	// after the given position, ordered by (updated_at, id). Soft-deleted
	// rows are part of the stream. An empty entityTypes slice means all
	// types; limit must be positive.
	ListEntitiesSince(ctx context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) ([]models.SyncedEntity, error)

	// MaxStreamPosition returns the position of the owner's most recent
	// update, or the zero position if the owner has no entities yet.
	MaxStreamPosition(ctx context.Context, ownerID int64) (models.StreamPosition, error)

	// GetChangeOutcomes returns ledger rows for the given change ids. Change
	// ids never seen before are absent from the result.
	GetChangeOutcomes(ctx context.Context, ownerID int64, changeIDs []string) ([]models.ChangeOutcome, error)

	// ApplyChanges persists the results of one processed push batch in a
	// single transaction: entity rows to upsert and ledger rows to record.
	ApplyChanges(ctx context.Context, ownerID int64, entities []models.SyncedEntity, outcomes []models.ChangeOutcome) error

	// Ping reports whether the underlying database is reachable.
	Ping(ctx context.Context) error
}
