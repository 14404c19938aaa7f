// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/validators"
	"github.com/MKhiriev/go-practice-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────
// Mock: store.SyncRepository
// ─────────────────────────────────────────────

type mockSyncRepository struct {
	getEntitiesFn       func(ctx context.Context, ownerID int64, entityIDs []string) ([]models.SyncedEntity, error)
	listEntitiesSinceFn func(ctx context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) ([]models.SyncedEntity, error)
	maxStreamPositionFn func(ctx context.Context, ownerID int64) (models.StreamPosition, error)
	getChangeOutcomesFn func(ctx context.Context, ownerID int64, changeIDs []string) ([]models.ChangeOutcome, error)
	applyChangesFn      func(ctx context.Context, ownerID int64, entities []models.SyncedEntity, outcomes []models.ChangeOutcome) error
	pingFn              func(ctx context.Context) error
}

func (m *mockSyncRepository) GetEntities(ctx context.Context, ownerID int64, entityIDs []string) ([]models.SyncedEntity, error) {
	if m.getEntitiesFn != nil {
		return m.getEntitiesFn(ctx, ownerID, entityIDs)
	}
	return nil, nil
}

func (m *mockSyncRepository) ListEntitiesSince(ctx context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) ([]models.SyncedEntity, error) {
	if m.listEntitiesSinceFn != nil {
		return m.listEntitiesSinceFn(ctx, ownerID, since, entityTypes, limit)
	}
	return nil, nil
}

func (m *mockSyncRepository) MaxStreamPosition(ctx context.Context, ownerID int64) (models.StreamPosition, error) {
	if m.maxStreamPositionFn != nil {
		return m.maxStreamPositionFn(ctx, ownerID)
	}
	return models.StreamPosition{}, nil
}

func (m *mockSyncRepository) GetChangeOutcomes(ctx context.Context, ownerID int64, changeIDs []string) ([]models.ChangeOutcome, error) {
	if m.getChangeOutcomesFn != nil {
		return m.getChangeOutcomesFn(ctx, ownerID, changeIDs)
	}
	return nil, nil
}

func (m *mockSyncRepository) ApplyChanges(ctx context.Context, ownerID int64, entities []models.SyncedEntity, outcomes []models.ChangeOutcome) error {
	if m.applyChangesFn != nil {
		return m.applyChangesFn(ctx, ownerID, entities, outcomes)
	}
	return nil
}

func (m *mockSyncRepository) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// ─────────────────────────────────────────────
// Mock: OwnerActor
// ─────────────────────────────────────────────

// inlineActor — простой мок актора: выполняет задачу сразу в вызывающей
// горутине и запоминает события для проверок.
type inlineActor struct {
	calls   int
	ownerID int64
	origin  string
	events  []models.Event
}

func (a *inlineActor) Execute(ctx context.Context, ownerID int64, originSessionID string, task func(ctx context.Context) ([]models.Event, error)) error {
	a.calls++
	a.ownerID = ownerID
	a.origin = originSessionID

	events, err := task(ctx)
	if err != nil {
		return err
	}
	a.events = append(a.events, events...)
	return nil
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

const testOwnerID = int64(42)

var (
	// frozenNow keeps assigned timestamps deterministic: the first accept of
	// a test sees exactly this instant, every following accept +1µs.
	frozenNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	errStorageDown = errors.New("storage error")
)

// newRawSyncService bypasses the constructor and returns the bare
// *syncService with a frozen clock and real validators.
func newRawSyncService(repo *mockSyncRepository) (*syncService, *inlineActor) {
	actor := &inlineActor{}
	return &syncService{
		syncRepository: repo,
		actor:          actor,
		validator:      validators.NewChangeValidator(),
		maxBatchSize:   10,
		pullPageLimit:  100,
		logger:         logger.Nop(),
		clock:          func() time.Time { return frozenNow },
		lastAssigned:   make(map[int64]time.Time),
	}, actor
}

func upsertChange(changeID, entityID string, baseVersion int64) models.Change {
	return models.Change{
		ChangeID:        changeID,
		EntityID:        entityID,
		EntityType:      models.EntityTypeLogbookEntry,
		Op:              models.OpUpsert,
		Payload:         json.RawMessage(`{"title":"scales in thirds"}`),
		ClientTimestamp: frozenNow.Add(-time.Minute),
		BaseSyncVersion: baseVersion,
	}
}

func storedEntity(id string, version int64, updatedAt time.Time) models.SyncedEntity {
	return models.SyncedEntity{
		ID:          id,
		EntityType:  models.EntityTypeLogbookEntry,
		OwnerID:     testOwnerID,
		Payload:     json.RawMessage(`{"title":"server copy"}`),
		UpdatedAt:   updatedAt,
		SyncVersion: version,
		ChangeID:    "chg-previous",
	}
}

// capturingRepo wires a mockSyncRepository whose ApplyChanges records its
// arguments for later assertions.
func capturingRepo() (*mockSyncRepository, *[]models.SyncedEntity, *[]models.ChangeOutcome) {
	var applied []models.SyncedEntity
	var recorded []models.ChangeOutcome

	repo := &mockSyncRepository{
		applyChangesFn: func(_ context.Context, _ int64, entities []models.SyncedEntity, outcomes []models.ChangeOutcome) error {
			applied = append(applied, entities...)
			recorded = append(recorded, outcomes...)
			return nil
		},
	}
	return repo, &applied, &recorded
}

// ─────────────────────────────────────────────
// Push: batch-level refusals
// ─────────────────────────────────────────────

func TestSyncService_Push_EmptyBatchRefused(t *testing.T) {
	svc, actor := newRawSyncService(&mockSyncRepository{})

	_, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{})

	require.ErrorIs(t, err, ErrInvalidRequest)
	require.ErrorIs(t, err, validators.ErrEmptyChanges)
	assert.Zero(t, actor.calls, "empty batch must be refused before the actor is involved")
}

func TestSyncService_Push_OversizedBatchRefused(t *testing.T) {
	svc, actor := newRawSyncService(&mockSyncRepository{})

	request := models.PushRequest{}
	for i := 0; i < svc.maxBatchSize+1; i++ {
		request.Changes = append(request.Changes, upsertChange(fmt.Sprintf("chg-%02d", i), fmt.Sprintf("note-%02d", i), 0))
	}

	_, err := svc.Push(context.Background(), testOwnerID, "session-a", request)

	require.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Zero(t, actor.calls, "oversized batch must be refused, never truncated")
}

func TestSyncService_Push_MalformedCheckpointRefused(t *testing.T) {
	svc, actor := newRawSyncService(&mockSyncRepository{})

	request := models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
		Since:   models.SyncCheckpoint("###not-a-checkpoint###"),
	}

	_, err := svc.Push(context.Background(), testOwnerID, "session-a", request)

	require.ErrorIs(t, err, ErrCheckpointUnknown)
	require.ErrorIs(t, err, models.ErrMalformedCheckpoint)
	assert.Zero(t, actor.calls)
}

func TestSyncService_Push_ContextCancelled(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, _ := newRawSyncService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := svc.Push(ctx, testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *applied)
}

// ─────────────────────────────────────────────
// Push: accepting changes
// ─────────────────────────────────────────────

func TestSyncService_Push_NewEntityAcceptedAtVersionOne(t *testing.T) {
	repo, applied, recorded := capturingRepo()
	svc, actor := newRawSyncService(repo)

	change := upsertChange("chg-1", "note-1", 0)
	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{change},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1"}, response.Accepted)
	assert.Empty(t, response.Conflicts)
	assert.Empty(t, response.Rejected)

	require.Len(t, *applied, 1)
	entity := (*applied)[0]
	assert.Equal(t, "note-1", entity.ID)
	assert.Equal(t, models.EntityTypeLogbookEntry, entity.EntityType)
	assert.Equal(t, testOwnerID, entity.OwnerID)
	assert.JSONEq(t, string(change.Payload), string(entity.Payload))
	assert.Equal(t, int64(1), entity.SyncVersion)
	assert.Equal(t, "chg-1", entity.ChangeID)
	assert.Nil(t, entity.DeletedAt)
	assert.True(t, entity.UpdatedAt.Equal(frozenNow), "server assigns the timestamp, not the client")

	require.Len(t, *recorded, 1)
	outcome := (*recorded)[0]
	assert.Equal(t, testOwnerID, outcome.OwnerID)
	assert.Equal(t, "chg-1", outcome.ChangeID)
	assert.Equal(t, "note-1", outcome.EntityID)
	assert.Equal(t, models.OutcomeAccepted, outcome.Outcome)
	assert.Equal(t, int64(1), outcome.SyncVersion)

	// Fan-out goes through the actor, tagged with the originating session.
	assert.Equal(t, 1, actor.calls)
	assert.Equal(t, testOwnerID, actor.ownerID)
	assert.Equal(t, "session-a", actor.origin)
	require.Len(t, actor.events, 1)
	assert.Equal(t, models.EventEntityUpserted, actor.events[0].Type)
	require.NotNil(t, actor.events[0].Entity)
	assert.Equal(t, entity, *actor.events[0].Entity)
}

func TestSyncService_Push_FastPathOnMatchingBaseVersion(t *testing.T) {
	existing := storedEntity("note-1", 3, frozenNow.Add(-time.Hour))
	existingPos := models.StreamPosition{UpdatedAt: existing.UpdatedAt, ID: existing.ID}

	repo, applied, _ := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, entityIDs []string) ([]models.SyncedEntity, error) {
		assert.Equal(t, []string{"note-1"}, entityIDs)
		return []models.SyncedEntity{existing}, nil
	}
	repo.maxStreamPositionFn = func(_ context.Context, _ int64) (models.StreamPosition, error) {
		return existingPos, nil
	}
	svc, _ := newRawSyncService(repo)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 3)},
		Since:   models.NewSyncCheckpoint(existingPos),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1"}, response.Accepted)
	require.Len(t, *applied, 1)
	assert.Equal(t, int64(4), (*applied)[0].SyncVersion)
}

func TestSyncService_Push_SecondEditOfSameEntityInOneBatch(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, actor := newRawSyncService(repo)

	first := upsertChange("chg-1", "note-1", 0)
	second := upsertChange("chg-2", "note-1", 1)
	second.Payload = json.RawMessage(`{"title":"scales in sixths"}`)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{first, second},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1", "chg-2"}, response.Accepted)
	assert.Empty(t, response.Conflicts)

	// оба изменения приняты с последовательными версиями
	require.Len(t, *applied, 2)
	assert.Equal(t, int64(1), (*applied)[0].SyncVersion)
	assert.Equal(t, int64(2), (*applied)[1].SyncVersion)
	assert.True(t, (*applied)[1].UpdatedAt.After((*applied)[0].UpdatedAt))
	assert.JSONEq(t, `{"title":"scales in sixths"}`, string((*applied)[1].Payload))

	assert.Len(t, actor.events, 2)
}

func TestSyncService_Push_QueuedEditsSharingOneBaseBothAccepted(t *testing.T) {
	// Очередь, накопленная офлайн: обе правки несут базу, которую устройство
	// видело последней. Вторая не должна проиграть собственной предшественнице.
	repo, applied, _ := capturingRepo()
	svc, actor := newRawSyncService(repo)

	first := upsertChange("chg-1", "note-1", 0)
	second := upsertChange("chg-2", "note-1", 0)
	second.Payload = json.RawMessage(`{"title":"scales in sixths"}`)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{first, second},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1", "chg-2"}, response.Accepted)
	assert.Empty(t, response.Conflicts, "the newest edit of the queue must survive")

	require.Len(t, *applied, 2)
	assert.Equal(t, int64(1), (*applied)[0].SyncVersion)
	assert.Equal(t, int64(2), (*applied)[1].SyncVersion)
	assert.JSONEq(t, `{"title":"scales in sixths"}`, string((*applied)[1].Payload),
		"the last edit in the queue owns the final state")

	assert.Len(t, actor.events, 2)
}

func TestSyncService_Push_SharedBaseOnExistingEntityFastForwards(t *testing.T) {
	existing := storedEntity("note-1", 3, frozenNow.Add(-time.Hour))

	repo, applied, _ := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{existing}, nil
	}
	svc, _ := newRawSyncService(repo)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{
			upsertChange("chg-1", "note-1", 3),
			upsertChange("chg-2", "note-1", 3),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1", "chg-2"}, response.Accepted)

	require.Len(t, *applied, 2)
	assert.Equal(t, int64(4), (*applied)[0].SyncVersion)
	assert.Equal(t, int64(5), (*applied)[1].SyncVersion)
}

func TestSyncService_Push_DeleteProducesTombstone(t *testing.T) {
	existing := storedEntity("note-1", 2, frozenNow.Add(-time.Hour))

	repo, applied, _ := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{existing}, nil
	}
	svc, actor := newRawSyncService(repo)

	change := models.Change{
		ChangeID:        "chg-del",
		EntityID:        "note-1",
		EntityType:      models.EntityTypeLogbookEntry,
		Op:              models.OpDelete,
		ClientTimestamp: frozenNow.Add(-time.Minute),
		BaseSyncVersion: 2,
	}

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{change},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-del"}, response.Accepted)

	require.Len(t, *applied, 1)
	tombstone := (*applied)[0]
	assert.Equal(t, int64(3), tombstone.SyncVersion)
	assert.Nil(t, tombstone.Payload, "a tombstone carries no body")
	require.NotNil(t, tombstone.DeletedAt)
	assert.True(t, tombstone.DeletedAt.Equal(tombstone.UpdatedAt))

	require.Len(t, actor.events, 1)
	event := actor.events[0]
	assert.Equal(t, models.EventEntityDeleted, event.Type)
	assert.Equal(t, "note-1", event.EntityID)
	assert.Equal(t, models.EntityTypeLogbookEntry, event.EntityType)
	assert.Equal(t, int64(3), event.SyncVersion)
	assert.Nil(t, event.Entity)
}

func TestSyncService_Push_DeleteOfUnknownEntityCreatesTombstone(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, _ := newRawSyncService(repo)

	change := models.Change{
		ChangeID:        "chg-del",
		EntityID:        "ghost-1",
		EntityType:      models.EntityTypeGoal,
		Op:              models.OpDelete,
		ClientTimestamp: frozenNow.Add(-time.Minute),
	}

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{change},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-del"}, response.Accepted)

	// Other devices still have to learn about the deletion.
	require.Len(t, *applied, 1)
	assert.Equal(t, int64(1), (*applied)[0].SyncVersion)
	assert.NotNil(t, (*applied)[0].DeletedAt)
}

// ─────────────────────────────────────────────
// Push: conflict resolution
// ─────────────────────────────────────────────

func TestSyncService_Push_StaleChangeLosesToNewerServerState(t *testing.T) {
	server := storedEntity("note-1", 5, frozenNow.Add(-time.Hour))

	repo, applied, recorded := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{server}, nil
	}
	svc, actor := newRawSyncService(repo)

	stale := upsertChange("chg-stale", "note-1", 3)
	stale.ClientTimestamp = server.UpdatedAt.Add(-10 * time.Minute)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{stale},
	})

	require.NoError(t, err)
	assert.Empty(t, response.Accepted)
	require.Len(t, response.Conflicts, 1)
	assert.Equal(t, "chg-stale", response.Conflicts[0].ChangeID)
	assert.Equal(t, server, response.Conflicts[0].ServerEntity, "the loser gets the winning state back")

	// The entity row is untouched; only the ledger gains a row.
	assert.Empty(t, *applied)
	require.Len(t, *recorded, 1)
	assert.Equal(t, models.OutcomeConflict, (*recorded)[0].Outcome)
	assert.Equal(t, int64(5), (*recorded)[0].SyncVersion)

	assert.Empty(t, actor.events, "a lost conflict changes nothing, so nothing is broadcast")
}

func TestSyncService_Push_SharedStaleBaseStillConflicts(t *testing.T) {
	// Две правки с одинаковой, но действительно устаревшей базой: сервер ушёл
	// вперёд ещё до батча, и проигравшая соседка не открывает второй дорогу.
	server := storedEntity("note-1", 5, frozenNow.Add(-time.Hour))

	repo, applied, _ := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{server}, nil
	}
	svc, _ := newRawSyncService(repo)

	first := upsertChange("chg-a", "note-1", 3)
	first.ClientTimestamp = server.UpdatedAt.Add(-10 * time.Minute)
	second := upsertChange("chg-b", "note-1", 3)
	second.ClientTimestamp = server.UpdatedAt.Add(-5 * time.Minute)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{first, second},
	})

	require.NoError(t, err)
	assert.Empty(t, response.Accepted)
	require.Len(t, response.Conflicts, 2)
	assert.Empty(t, *applied)
}

func TestSyncService_Push_EqualTimestampsResolvedByChangeID(t *testing.T) {
	sharedMoment := frozenNow.Add(-time.Hour)

	tests := []struct {
		name         string
		changeID     string
		wantAccepted bool
	}{
		{name: "greater change id wins over the server row", changeID: "b2", wantAccepted: true},
		{name: "smaller change id loses to the server row", changeID: "a1", wantAccepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := storedEntity("note-1", 2, sharedMoment)
			server.ChangeID = "a7"

			repo, applied, _ := capturingRepo()
			repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
				return []models.SyncedEntity{server}, nil
			}
			svc, _ := newRawSyncService(repo)

			contender := upsertChange(tt.changeID, "note-1", 1)
			contender.ClientTimestamp = sharedMoment

			response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
				Changes: []models.Change{contender},
			})

			require.NoError(t, err)
			if tt.wantAccepted {
				assert.Equal(t, []string{tt.changeID}, response.Accepted)
				require.Len(t, *applied, 1)
				assert.Equal(t, int64(3), (*applied)[0].SyncVersion)
			} else {
				assert.Empty(t, response.Accepted)
				require.Len(t, response.Conflicts, 1)
				assert.Empty(t, *applied)
			}
		})
	}
}

// ─────────────────────────────────────────────
// Push: idempotent replay
// ─────────────────────────────────────────────

func TestSyncService_Push_ReplayedAcceptedChangeHasNoSideEffects(t *testing.T) {
	current := storedEntity("note-1", 4, frozenNow.Add(-time.Hour))
	currentPos := models.StreamPosition{UpdatedAt: current.UpdatedAt, ID: current.ID}

	repo, applied, recorded := capturingRepo()
	repo.getChangeOutcomesFn = func(_ context.Context, _ int64, changeIDs []string) ([]models.ChangeOutcome, error) {
		assert.Equal(t, []string{"chg-1"}, changeIDs)
		return []models.ChangeOutcome{{
			OwnerID:     testOwnerID,
			ChangeID:    "chg-1",
			EntityID:    "note-1",
			Outcome:     models.OutcomeAccepted,
			SyncVersion: 4,
		}}, nil
	}
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{current}, nil
	}
	repo.maxStreamPositionFn = func(_ context.Context, _ int64) (models.StreamPosition, error) {
		return currentPos, nil
	}
	svc, actor := newRawSyncService(repo)

	since := models.NewSyncCheckpoint(currentPos)
	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 3)},
		Since:   since,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1"}, response.Accepted, "the recorded verdict is replayed")
	assert.Empty(t, *applied, "a replay must not write the entity again")
	assert.Empty(t, *recorded, "a replay must not add ledger rows")
	assert.Empty(t, actor.events)
	assert.Equal(t, since, response.NewCheckpoint, "nothing was written, the cursor stays")
}

func TestSyncService_Push_ReplayedConflictServesCurrentEntity(t *testing.T) {
	// Состояние на сервере успело уйти вперёд с момента исходного конфликта:
	// повтор должен получить текущую запись, а не историческую.
	current := storedEntity("note-1", 9, frozenNow.Add(-time.Minute))

	repo, applied, _ := capturingRepo()
	repo.getChangeOutcomesFn = func(_ context.Context, _ int64, _ []string) ([]models.ChangeOutcome, error) {
		return []models.ChangeOutcome{{
			OwnerID:     testOwnerID,
			ChangeID:    "chg-lost",
			EntityID:    "note-1",
			Outcome:     models.OutcomeConflict,
			SyncVersion: 5,
		}}, nil
	}
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{current}, nil
	}
	svc, _ := newRawSyncService(repo)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-lost", "note-1", 3)},
	})

	require.NoError(t, err)
	require.Len(t, response.Conflicts, 1)
	assert.Equal(t, "chg-lost", response.Conflicts[0].ChangeID)
	assert.Equal(t, current, response.Conflicts[0].ServerEntity)
	assert.Empty(t, *applied)
}

// ─────────────────────────────────────────────
// Push: rejections and duplicates
// ─────────────────────────────────────────────

func TestSyncService_Push_RejectedChangeDoesNotBlockSiblings(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, _ := newRawSyncService(repo)

	bad := upsertChange("chg-bad", "hologram-1", 0)
	bad.EntityType = "hologram"

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{
			upsertChange("chg-1", "note-1", 0),
			bad,
			upsertChange("chg-2", "note-2", 0),
		},
	})

	require.NoError(t, err, "a per-change rejection is not a request failure")
	assert.Equal(t, []string{"chg-1", "chg-2"}, response.Accepted)
	require.Len(t, response.Rejected, 1)
	assert.Equal(t, "chg-bad", response.Rejected[0].ChangeID)
	assert.Contains(t, response.Rejected[0].Reason, "unknown entity type")
	assert.Len(t, *applied, 2)
}

func TestSyncService_Push_InBatchDuplicateGetsOneVerdict(t *testing.T) {
	repo, applied, recorded := capturingRepo()
	svc, actor := newRawSyncService(repo)

	change := upsertChange("chg-1", "note-1", 0)
	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{change, change},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1"}, response.Accepted)
	assert.Len(t, *applied, 1)
	assert.Len(t, *recorded, 1)
	assert.Len(t, actor.events, 1)
}

func TestSyncService_Push_EachMissingChangeIDRejectedSeparately(t *testing.T) {
	// Пустой changeId не может склеивать разные изменения в один вердикт:
	// каждое обязано получить собственный отказ.
	repo, applied, recorded := capturingRepo()
	svc, actor := newRawSyncService(repo)

	first := upsertChange("", "note-1", 0)
	second := upsertChange("", "note-2", 0)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{first, second},
	})

	require.NoError(t, err)
	assert.Empty(t, response.Accepted)
	require.Len(t, response.Rejected, 2)
	assert.Contains(t, response.Rejected[0].Reason, "invalid change id")
	assert.Contains(t, response.Rejected[1].Reason, "invalid change id")
	assert.Empty(t, *applied)
	assert.Empty(t, *recorded)
	assert.Empty(t, actor.events)
}

// ─────────────────────────────────────────────
// Push: checkpoint advancement
// ─────────────────────────────────────────────

func TestSyncService_Push_CheckpointAdvancesWhenCaughtUp(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, _ := newRawSyncService(repo)

	// Fresh owner: stream max is zero, empty Since means caught up.
	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
	})

	require.NoError(t, err)
	require.Len(t, *applied, 1)

	pos, err := response.NewCheckpoint.Position()
	require.NoError(t, err)
	assert.True(t, pos.UpdatedAt.Equal((*applied)[0].UpdatedAt))
	assert.Equal(t, "note-1", pos.ID, "the cursor addresses the batch's own last write")
}

func TestSyncService_Push_CheckpointEchoedWhenBehind(t *testing.T) {
	// Someone else's write sits beyond the client's cursor: advancing past
	// the push would make the next pull skip it.
	repo, _, _ := capturingRepo()
	repo.maxStreamPositionFn = func(_ context.Context, _ int64) (models.StreamPosition, error) {
		return models.StreamPosition{UpdatedAt: frozenNow.Add(-time.Second), ID: "other-9"}, nil
	}
	svc, _ := newRawSyncService(repo)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-1"}, response.Accepted)
	assert.True(t, response.NewCheckpoint.Zero(), "Since is echoed untouched")
}

func TestSyncService_Push_CheckpointKeptWhenNothingWritten(t *testing.T) {
	server := storedEntity("note-1", 5, frozenNow.Add(-time.Hour))
	serverPos := models.StreamPosition{UpdatedAt: server.UpdatedAt, ID: server.ID}

	repo, _, _ := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{server}, nil
	}
	repo.maxStreamPositionFn = func(_ context.Context, _ int64) (models.StreamPosition, error) {
		return serverPos, nil
	}
	svc, _ := newRawSyncService(repo)

	stale := upsertChange("chg-stale", "note-1", 3)
	stale.ClientTimestamp = server.UpdatedAt.Add(-10 * time.Minute)

	since := models.NewSyncCheckpoint(serverPos)
	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{stale},
		Since:   since,
	})

	require.NoError(t, err)
	require.Len(t, response.Conflicts, 1)
	assert.Equal(t, since, response.NewCheckpoint, "an all-conflict batch moves no cursor")
}

// ─────────────────────────────────────────────
// Push: server-assigned timestamps
// ─────────────────────────────────────────────

func TestSyncService_Push_AssignedTimestampsStrictlyIncrease(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, _ := newRawSyncService(repo)

	_, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{
			upsertChange("chg-1", "note-1", 0),
			upsertChange("chg-2", "note-2", 0),
			upsertChange("chg-3", "note-3", 0),
		},
	})

	require.NoError(t, err)
	require.Len(t, *applied, 3)

	// Часы заморожены, но метки всё равно обязаны строго расти.
	for i := 1; i < len(*applied); i++ {
		assert.True(t, (*applied)[i].UpdatedAt.After((*applied)[i-1].UpdatedAt),
			"entity %d must be stamped after entity %d", i, i-1)
	}
}

func TestSyncService_Push_AssignedTimestampsMonotonicAcrossBatches(t *testing.T) {
	repo, applied, _ := capturingRepo()
	svc, _ := newRawSyncService(repo)

	_, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
	})
	require.NoError(t, err)

	_, err = svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-2", "note-2", 0)},
	})
	require.NoError(t, err)

	require.Len(t, *applied, 2)
	assert.True(t, (*applied)[1].UpdatedAt.After((*applied)[0].UpdatedAt),
		"the owner's stream clock survives between batches")
}

func TestSyncService_Push_AssignedTimestampClampedAboveStreamMaximum(t *testing.T) {
	// The persisted stream is ahead of the wall clock (another instance with
	// a faster clock wrote last). New stamps must stay above it.
	floor := frozenNow.Add(time.Hour)

	repo, applied, _ := capturingRepo()
	repo.maxStreamPositionFn = func(_ context.Context, _ int64) (models.StreamPosition, error) {
		return models.StreamPosition{UpdatedAt: floor, ID: "other-1"}, nil
	}
	svc, _ := newRawSyncService(repo)

	_, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
	})

	require.NoError(t, err)
	require.Len(t, *applied, 1)
	assert.True(t, (*applied)[0].UpdatedAt.After(floor))
}

// ─────────────────────────────────────────────
// Push: storage failures
// ─────────────────────────────────────────────

func TestSyncService_Push_StorageErrorPropagates(t *testing.T) {
	tests := []struct {
		name string
		repo *mockSyncRepository
	}{
		{
			name: "ledger lookup fails",
			repo: &mockSyncRepository{
				getChangeOutcomesFn: func(_ context.Context, _ int64, _ []string) ([]models.ChangeOutcome, error) {
					return nil, errStorageDown
				},
			},
		},
		{
			name: "entity lookup fails",
			repo: &mockSyncRepository{
				getEntitiesFn: func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
					return nil, errStorageDown
				},
			},
		},
		{
			name: "stream position lookup fails",
			repo: &mockSyncRepository{
				maxStreamPositionFn: func(_ context.Context, _ int64) (models.StreamPosition, error) {
					return models.StreamPosition{}, errStorageDown
				},
			},
		},
		{
			name: "batch write fails",
			repo: &mockSyncRepository{
				applyChangesFn: func(_ context.Context, _ int64, _ []models.SyncedEntity, _ []models.ChangeOutcome) error {
					return errStorageDown
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, actor := newRawSyncService(tt.repo)

			_, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
				Changes: []models.Change{upsertChange("chg-1", "note-1", 0)},
			})

			require.ErrorIs(t, err, errStorageDown)
			assert.Empty(t, actor.events, "no events leave a failed turn")
		})
	}
}

// ─────────────────────────────────────────────
// Push: realistic mixed batch
// ─────────────────────────────────────────────

// TestSyncService_Push_MixedBatch runs one batch in which every change falls
// into a different verdict category.
//
// Batch:
//
//	"chg-new"    unseen entity           → accepted v1
//	"chg-fast"   base equals current     → accepted v2
//	"chg-stale"  older concurrent edit   → conflict, server state returned
//	"chg-replay" already in the ledger   → replayed verdict, no writes
//	"chg-bad"    unknown entity type     → rejected
//	"chg-new"    duplicate in the batch  → skipped, first verdict stands
func TestSyncService_Push_MixedBatch(t *testing.T) {
	fastTarget := storedEntity("note-fast", 1, frozenNow.Add(-3*time.Hour))
	conflictTarget := storedEntity("note-conflict", 5, frozenNow.Add(-time.Hour))
	replayTarget := storedEntity("note-replay", 2, frozenNow.Add(-2*time.Hour))

	repo, applied, recorded := capturingRepo()
	repo.getEntitiesFn = func(_ context.Context, _ int64, _ []string) ([]models.SyncedEntity, error) {
		return []models.SyncedEntity{fastTarget, conflictTarget, replayTarget}, nil
	}
	repo.getChangeOutcomesFn = func(_ context.Context, _ int64, _ []string) ([]models.ChangeOutcome, error) {
		return []models.ChangeOutcome{{
			OwnerID:     testOwnerID,
			ChangeID:    "chg-replay",
			EntityID:    "note-replay",
			Outcome:     models.OutcomeAccepted,
			SyncVersion: 2,
		}}, nil
	}
	svc, actor := newRawSyncService(repo)

	stale := upsertChange("chg-stale", "note-conflict", 2)
	stale.ClientTimestamp = conflictTarget.UpdatedAt.Add(-30 * time.Minute)

	bad := upsertChange("chg-bad", "hologram-1", 0)
	bad.EntityType = "hologram"

	newChange := upsertChange("chg-new", "note-new", 0)

	response, err := svc.Push(context.Background(), testOwnerID, "session-a", models.PushRequest{
		Changes: []models.Change{
			newChange,
			upsertChange("chg-fast", "note-fast", 1),
			stale,
			upsertChange("chg-replay", "note-replay", 1),
			bad,
			newChange,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chg-new", "chg-fast", "chg-replay"}, response.Accepted)

	require.Len(t, response.Conflicts, 1)
	assert.Equal(t, "chg-stale", response.Conflicts[0].ChangeID)
	assert.Equal(t, conflictTarget, response.Conflicts[0].ServerEntity)

	require.Len(t, response.Rejected, 1)
	assert.Equal(t, "chg-bad", response.Rejected[0].ChangeID)

	// Writes: the two real accepts. Ledger rows: those two plus the conflict.
	assert.Len(t, *applied, 2)
	assert.Len(t, *recorded, 3)
	assert.Len(t, actor.events, 2)
}

// ─────────────────────────────────────────────
// Pull
// ─────────────────────────────────────────────

func TestSyncService_Pull_FirstSyncReturnsPageAndCheckpoint(t *testing.T) {
	page := []models.SyncedEntity{
		storedEntity("note-1", 1, frozenNow.Add(-2*time.Hour)),
		storedEntity("note-2", 3, frozenNow.Add(-time.Hour)),
	}

	repo := &mockSyncRepository{
		listEntitiesSinceFn: func(_ context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) ([]models.SyncedEntity, error) {
			assert.Equal(t, testOwnerID, ownerID)
			assert.True(t, since.Zero(), "empty checkpoint means full sync")
			assert.Empty(t, entityTypes)
			assert.Equal(t, 100, limit)
			return page, nil
		},
	}
	svc, actor := newRawSyncService(repo)

	response, err := svc.Pull(context.Background(), testOwnerID, models.PullRequest{})

	require.NoError(t, err)
	assert.Equal(t, page, response.Entities)
	assert.Equal(t, 2, response.Length)
	assert.Zero(t, actor.calls, "pull is read-only and bypasses the actor")

	pos, err := response.NewCheckpoint.Position()
	require.NoError(t, err)
	assert.True(t, pos.UpdatedAt.Equal(page[1].UpdatedAt))
	assert.Equal(t, "note-2", pos.ID)
}

func TestSyncService_Pull_EmptyPageKeepsCursor(t *testing.T) {
	since := models.NewSyncCheckpoint(models.StreamPosition{UpdatedAt: frozenNow.Add(-time.Hour), ID: "note-9"})

	repo := &mockSyncRepository{
		listEntitiesSinceFn: func(_ context.Context, _ int64, pos models.StreamPosition, _ []string, _ int) ([]models.SyncedEntity, error) {
			assert.Equal(t, "note-9", pos.ID)
			return nil, nil
		},
	}
	svc, _ := newRawSyncService(repo)

	response, err := svc.Pull(context.Background(), testOwnerID, models.PullRequest{Since: since})

	require.NoError(t, err)
	assert.Empty(t, response.Entities)
	assert.Equal(t, since, response.NewCheckpoint)
}

func TestSyncService_Pull_LimitClampedToServerMaximum(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		wantLimit int
	}{
		{name: "zero means server default", requested: 0, wantLimit: 100},
		{name: "small limits pass through", requested: 5, wantLimit: 5},
		{name: "greedy limits are clamped", requested: 1000, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int
			repo := &mockSyncRepository{
				listEntitiesSinceFn: func(_ context.Context, _ int64, _ models.StreamPosition, _ []string, limit int) ([]models.SyncedEntity, error) {
					got = limit
					return nil, nil
				},
			}
			svc, _ := newRawSyncService(repo)

			_, err := svc.Pull(context.Background(), testOwnerID, models.PullRequest{Limit: tt.requested})

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, got)
		})
	}
}

func TestSyncService_Pull_PassesEntityTypeFilter(t *testing.T) {
	var got []string
	repo := &mockSyncRepository{
		listEntitiesSinceFn: func(_ context.Context, _ int64, _ models.StreamPosition, entityTypes []string, _ int) ([]models.SyncedEntity, error) {
			got = entityTypes
			return nil, nil
		},
	}
	svc, _ := newRawSyncService(repo)

	_, err := svc.Pull(context.Background(), testOwnerID, models.PullRequest{
		EntityTypes: []string{models.EntityTypeGoal},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{models.EntityTypeGoal}, got)
}

func TestSyncService_Pull_InvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		request models.PullRequest
		wantErr error
	}{
		{
			name:    "malformed checkpoint",
			request: models.PullRequest{Since: models.SyncCheckpoint("???")},
			wantErr: ErrCheckpointUnknown,
		},
		{
			name:    "negative limit",
			request: models.PullRequest{Limit: -1},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown entity type filter",
			request: models.PullRequest{EntityTypes: []string{"hologram"}},
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockSyncRepository{
				listEntitiesSinceFn: func(_ context.Context, _ int64, _ models.StreamPosition, _ []string, _ int) ([]models.SyncedEntity, error) {
					called = true
					return nil, nil
				},
			}
			svc, _ := newRawSyncService(repo)

			_, err := svc.Pull(context.Background(), testOwnerID, tt.request)

			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, called, "the repository must not be reached")
		})
	}
}

func TestSyncService_Pull_StorageErrorPropagates(t *testing.T) {
	repo := &mockSyncRepository{
		listEntitiesSinceFn: func(_ context.Context, _ int64, _ models.StreamPosition, _ []string, _ int) ([]models.SyncedEntity, error) {
			return nil, errStorageDown
		},
	}
	svc, _ := newRawSyncService(repo)

	_, err := svc.Pull(context.Background(), testOwnerID, models.PullRequest{})

	require.ErrorIs(t, err, errStorageDown)
}
