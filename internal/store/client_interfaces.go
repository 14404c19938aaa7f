package store

import (
	"context"

	"github.com/MKhiriev/go-practice-sync/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// LocalSyncRepository is the device-local store: the entity cache, the
// outbox of pending changes and the persisted checkpoint. All rows belong
// to the device's signed-in owner, so no owner column exists locally.
type LocalSyncRepository interface {
	// ApplyChange persists an optimistic local write: the entity row is
	// upserted and the change is appended to the outbox in one transaction,
	// so a crash can never leave an entity without its pending change.
	// Replaying a change id already in the outbox re-upserts the entity and
	// leaves the outbox row as it was.
	ApplyChange(ctx context.Context, entity models.SyncedEntity, change models.Change) error

	// ApplyServerEntity overwrites the local entity row with server state.
	ApplyServerEntity(ctx context.Context, entity models.SyncedEntity) error

	// GetEntity returns the local snapshot of one entity.
	// Returns [ErrEntityNotFound] if the id is unknown locally.
	GetEntity(ctx context.Context, entityID string) (models.EntitySnapshot, error)

	// ListEntities returns local snapshots matching the filter, newest first.
	ListEntities(ctx context.Context, filter models.ReadFilter) ([]models.EntitySnapshot, error)

	// ListPendingChanges returns the outbox changes recorded for one entity
	// in the order the device made them.
	ListPendingChanges(ctx context.Context, entityID string) ([]models.Change, error)

	// NextOutboxBatch returns up to limit of the oldest pending changes.
	NextOutboxBatch(ctx context.Context, limit int) ([]models.Change, error)

	// RemoveOutboxChanges drops the given change ids from the outbox once
	// the server has answered for them.
	RemoveOutboxChanges(ctx context.Context, changeIDs []string) error

	// OutboxLen returns the number of changes still waiting in the outbox.
	OutboxLen(ctx context.Context) (int, error)

	// GetCheckpoint returns the last checkpoint received from the server,
	// or the empty checkpoint if the device has never synced.
	GetCheckpoint(ctx context.Context) (models.SyncCheckpoint, error)

	// SetCheckpoint persists the checkpoint replayed on the next pull.
	SetCheckpoint(ctx context.Context, checkpoint models.SyncCheckpoint) error
}
