package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/resolve"
	"github.com/MKhiriev/go-practice-sync/internal/store"
	"github.com/MKhiriev/go-practice-sync/internal/utils"
	"github.com/MKhiriev/go-practice-sync/internal/validators"
	"github.com/MKhiriev/go-practice-sync/models"
)

// localStoreService is the concrete implementation of LocalStoreService.
//
// The mutex serializes all local mutations: the application thread writing
// optimistically, the drain loop acknowledging pushed changes and the
// reconciler folding in server state. Reads go straight to the repository.
type localStoreService struct {
	repo      store.LocalSyncRepository
	validator validators.Validator
	ids       *utils.UUIDGenerator
	logger    *logger.Logger

	// clock is indirected for tests; production always ticks time.Now.
	clock func() time.Time

	mu sync.Mutex
}

// NewLocalStoreService constructs the device-state gatekeeper on top of the
// local repository.
func NewLocalStoreService(repo store.LocalSyncRepository, validator validators.Validator, logger *logger.Logger) LocalStoreService {
	return &localStoreService{
		repo:      repo,
		validator: validator,
		ids:       utils.NewUUIDGenerator(),
		logger:    logger,
		clock:     time.Now,
	}
}

// Apply implements LocalStoreService.
//
// The change arrives as the application produced it, possibly with empty
// metadata: a fresh upsert may carry no entityId, and no caller is expected
// to mint changeIds or timestamps itself. Everything missing is filled in
// here, before validation, so the change that lands in the outbox is
// exactly the change that will later go over the wire.
func (l *localStoreService) Apply(ctx context.Context, change models.Change) (models.EntitySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if change.ChangeID == "" {
		change.ChangeID = l.ids.Generate()
	}
	if change.ClientTimestamp.IsZero() {
		change.ClientTimestamp = l.clock().UTC()
	}
	if change.EntityID == "" && change.Op == models.OpUpsert {
		change.EntityID = l.ids.Generate()
	}

	if err := l.validator.Validate(ctx, change); err != nil {
		return models.EntitySnapshot{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	current, err := l.repo.GetEntity(ctx, change.EntityID)
	switch {
	case err == nil:
		change.BaseSyncVersion = current.SyncVersion
	case errors.Is(err, store.ErrEntityNotFound):
		if change.Op == models.OpDelete {
			// удалять нечего — локально такой сущности нет
			return models.EntitySnapshot{}, err
		}
		change.BaseSyncVersion = 0
	default:
		return models.EntitySnapshot{}, fmt.Errorf("load current entity: %w", err)
	}

	entity := l.provisionalEntity(current.SyncedEntity, change)
	if err := l.repo.ApplyChange(ctx, entity, change); err != nil {
		return models.EntitySnapshot{}, fmt.Errorf("persist local change: %w", err)
	}

	l.logger.Debug().
		Str("change_id", change.ChangeID).
		Str("entity_id", change.EntityID).
		Str("op", string(change.Op)).
		Msg("local change captured")

	return models.EntitySnapshot{SyncedEntity: entity, Pending: true}, nil
}

// provisionalEntity builds the optimistic row the application sees until the
// server acknowledges the change. The row advances past its base version so
// the next queued edit of the same entity captures this change's version as
// its base: queued edits chain instead of all claiming the version the
// device last pulled. The server hands out the same numbers on accept, so an
// acknowledged row and the provisional one agree.
func (l *localStoreService) provisionalEntity(current models.SyncedEntity, change models.Change) models.SyncedEntity {
	entity := current
	entity.ID = change.EntityID
	entity.EntityType = change.EntityType
	entity.ChangeID = change.ChangeID
	entity.UpdatedAt = change.ClientTimestamp
	entity.SyncVersion = change.BaseSyncVersion + 1

	switch change.Op {
	case models.OpDelete:
		deletedAt := change.ClientTimestamp
		entity.DeletedAt = &deletedAt
	default:
		entity.Payload = change.Payload
		entity.DeletedAt = nil
	}

	return entity
}

// Get implements LocalStoreService.
func (l *localStoreService) Get(ctx context.Context, entityID string) (models.EntitySnapshot, error) {
	return l.repo.GetEntity(ctx, entityID)
}

// List implements LocalStoreService.
func (l *localStoreService) List(ctx context.Context, filter models.ReadFilter) ([]models.EntitySnapshot, error) {
	return l.repo.ListEntities(ctx, filter)
}

// Reconcile implements LocalStoreService.
//
// Server rows lose against newer pending local changes: the local cache
// keeps the provisional view and the outbox entry stays queued, so the
// device's write still reaches the server on the next drain. In every other
// case the server row overwrites the cache, tombstones included.
func (l *localStoreService) Reconcile(ctx context.Context, entities []models.SyncedEntity, checkpoint models.SyncCheckpoint) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entity := range entities {
		keep, err := l.localViewWins(ctx, entity)
		if err != nil {
			return err
		}
		if keep {
			l.logger.Debug().
				Str("entity_id", entity.ID).
				Msg("pending local change beats server state, keeping local view")
			continue
		}

		if err := l.repo.ApplyServerEntity(ctx, entity); err != nil {
			return fmt.Errorf("apply server entity %s: %w", entity.ID, err)
		}
	}

	if !checkpoint.Zero() {
		if err := l.repo.SetCheckpoint(ctx, checkpoint); err != nil {
			return fmt.Errorf("store checkpoint: %w", err)
		}
	}

	return nil
}

// localViewWins reports whether a pending local change for the entity beats
// the incoming server state under the same last-write-wins policy the
// server applies. Comparing with the newest pending change is enough: the
// outbox is ordered, so it carries the latest local intent.
func (l *localStoreService) localViewWins(ctx context.Context, server models.SyncedEntity) (bool, error) {
	pending, err := l.repo.ListPendingChanges(ctx, server.ID)
	if err != nil {
		return false, fmt.Errorf("list pending changes for %s: %w", server.ID, err)
	}
	if len(pending) == 0 {
		return false, nil
	}

	last := pending[len(pending)-1]
	return resolve.Resolve(last, server) == resolve.WinnerLocal, nil
}

// NextBatch implements LocalStoreService.
func (l *localStoreService) NextBatch(ctx context.Context, limit int) ([]models.Change, error) {
	return l.repo.NextOutboxBatch(ctx, limit)
}

// Acknowledge implements LocalStoreService.
func (l *localStoreService) Acknowledge(ctx context.Context, changeIDs []string) error {
	if len(changeIDs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.repo.RemoveOutboxChanges(ctx, changeIDs)
}

// PendingCount implements LocalStoreService.
func (l *localStoreService) PendingCount(ctx context.Context) (int, error) {
	return l.repo.OutboxLen(ctx)
}

// Checkpoint implements LocalStoreService.
func (l *localStoreService) Checkpoint(ctx context.Context) (models.SyncCheckpoint, error) {
	return l.repo.GetCheckpoint(ctx)
}
