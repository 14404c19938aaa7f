// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/adapter"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/mock"
	"github.com/MKhiriev/go-practice-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// stubLocalStore — простой мок LocalStoreService, не требует mockgen
// (избегаем цикл импортов). Ведёт себя как настоящий store: хранит чекпоинт
// и отдаёт батчи очередями. Мьютекс нужен realtime-тестам, где сервис
// работает в своей горутине.
type stubLocalStore struct {
	mu sync.Mutex

	batches    [][]models.Change
	checkpoint models.SyncCheckpoint

	acked      [][]string
	reconciled []reconcileCall

	nextErr       error
	ackErr        error
	reconcileErr  error
	checkpointErr error
}

type reconcileCall struct {
	entities   []models.SyncedEntity
	checkpoint models.SyncCheckpoint
}

func (s *stubLocalStore) Apply(_ context.Context, _ models.Change) (models.EntitySnapshot, error) {
	return models.EntitySnapshot{}, nil
}

func (s *stubLocalStore) Get(_ context.Context, _ string) (models.EntitySnapshot, error) {
	return models.EntitySnapshot{}, nil
}

func (s *stubLocalStore) List(_ context.Context, _ models.ReadFilter) ([]models.EntitySnapshot, error) {
	return nil, nil
}

func (s *stubLocalStore) Reconcile(_ context.Context, entities []models.SyncedEntity, checkpoint models.SyncCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconcileErr != nil {
		return s.reconcileErr
	}
	s.reconciled = append(s.reconciled, reconcileCall{entities: entities, checkpoint: checkpoint})
	if !checkpoint.Zero() {
		s.checkpoint = checkpoint
	}
	return nil
}

func (s *stubLocalStore) NextBatch(_ context.Context, _ int) ([]models.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextErr != nil {
		return nil, s.nextErr
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *stubLocalStore) Acknowledge(_ context.Context, changeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ackErr != nil {
		return s.ackErr
	}
	s.acked = append(s.acked, changeIDs)
	return nil
}

func (s *stubLocalStore) PendingCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, batch := range s.batches {
		total += len(batch)
	}
	return total, nil
}

func (s *stubLocalStore) Checkpoint(_ context.Context) (models.SyncCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint, s.checkpointErr
}

// reconciledCalls копирует протокол reconcile-вызовов для проверок из
// другой горутины.
func (s *stubLocalStore) reconciledCalls() []reconcileCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]reconcileCall, len(s.reconciled))
	copy(calls, s.reconciled)
	return calls
}

func (s *stubLocalStore) storedCheckpoint() models.SyncCheckpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint
}

// newTestClientSyncSvc — хелпер для создания clientSyncService с моками
func newTestClientSyncSvc(
	t *testing.T,
	ctrl *gomock.Controller,
) (
	*clientSyncService,
	*stubLocalStore,
	*mock.MockServerAdapter,
) {
	t.Helper()
	localStore := &stubLocalStore{}
	mockAdapter := mock.NewMockServerAdapter(ctrl)

	svc := NewClientSyncService(localStore, mockAdapter, config.ClientWorkers{BatchSize: 10}, logger.Nop()).(*clientSyncService)

	return svc, localStore, mockAdapter
}

func checkpointAt(day int, id string) models.SyncCheckpoint {
	return models.NewSyncCheckpoint(models.StreamPosition{
		UpdatedAt: time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC),
		ID:        id,
	})
}

func outboxChange(id, entityID string) models.Change {
	return models.Change{
		ChangeID:        id,
		EntityID:        entityID,
		EntityType:      models.EntityTypeLogbookEntry,
		Op:              models.OpUpsert,
		Payload:         json.RawMessage(`{"title":"arpeggio warmup"}`),
		ClientTimestamp: time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
	}
}

// ── DrainOutbox ──────────────────────────────────────────────────────────────

func TestClientSyncService_DrainOutbox_EmptyOutbox(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, _ := newTestClientSyncSvc(t, ctrl)

	// Push не ожидается вовсе — пустой outbox не ходит в сеть
	err := svc.DrainOutbox(context.Background())
	require.NoError(t, err)
	assert.Empty(t, localStore.acked)
}

func TestClientSyncService_DrainOutbox_SingleBatchAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	since := checkpointAt(13, "ent-0")
	newCheckpoint := checkpointAt(14, "ent-2")
	localStore.checkpoint = since
	localStore.batches = [][]models.Change{
		{outboxChange("c-1", "ent-1"), outboxChange("c-2", "ent-2")},
	}

	mockAdapter.EXPECT().
		Push(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
			assert.Equal(t, since, req.Since)
			assert.Len(t, req.Changes, 2)
			return models.PushResponse{
				Accepted:      []string{"c-1", "c-2"},
				NewCheckpoint: newCheckpoint,
			}, nil
		})

	err := svc.DrainOutbox(ctx)
	require.NoError(t, err)

	require.Len(t, localStore.acked, 1)
	assert.Equal(t, []string{"c-1", "c-2"}, localStore.acked[0])

	require.Len(t, localStore.reconciled, 1)
	assert.Empty(t, localStore.reconciled[0].entities)
	assert.Equal(t, newCheckpoint, localStore.reconciled[0].checkpoint)
}

func TestClientSyncService_DrainOutbox_LoopsUntilEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	firstCheckpoint := checkpointAt(14, "ent-1")
	localStore.batches = [][]models.Change{
		{outboxChange("c-1", "ent-1")},
		{outboxChange("c-2", "ent-2")},
	}

	gomock.InOrder(
		mockAdapter.EXPECT().
			Push(ctx, gomock.Any()).
			Return(models.PushResponse{Accepted: []string{"c-1"}, NewCheckpoint: firstCheckpoint}, nil),
		mockAdapter.EXPECT().
			Push(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
				// второй батч уходит уже с чекпоинтом первого ответа
				assert.Equal(t, firstCheckpoint, req.Since)
				return models.PushResponse{Accepted: []string{"c-2"}, NewCheckpoint: checkpointAt(15, "ent-2")}, nil
			}),
	)

	err := svc.DrainOutbox(ctx)
	require.NoError(t, err)
	assert.Len(t, localStore.acked, 2)
}

func TestClientSyncService_DrainOutbox_SplitsOversizedBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	localStore.batches = [][]models.Change{{
		outboxChange("c-1", "ent-1"),
		outboxChange("c-2", "ent-2"),
		outboxChange("c-3", "ent-3"),
		outboxChange("c-4", "ent-4"),
	}}

	acceptAll := func(_ context.Context, req models.PushRequest) (models.PushResponse, error) {
		accepted := make([]string, 0, len(req.Changes))
		for _, change := range req.Changes {
			accepted = append(accepted, change.ChangeID)
		}
		return models.PushResponse{Accepted: accepted, NewCheckpoint: checkpointAt(15, "ent-4")}, nil
	}

	gomock.InOrder(
		mockAdapter.EXPECT().
			Push(ctx, gomock.Any()).
			Return(models.PushResponse{}, fmt.Errorf("%w: batch of 4 changes exceeds limit 2", adapter.ErrBatchTooLarge)),
		mockAdapter.EXPECT().
			Push(ctx, gomock.Any()).
			DoAndReturn(func(pushCtx context.Context, req models.PushRequest) (models.PushResponse, error) {
				assert.Equal(t, []string{"c-1", "c-2"}, changeIDsOf(req.Changes))
				return acceptAll(pushCtx, req)
			}),
		mockAdapter.EXPECT().
			Push(ctx, gomock.Any()).
			DoAndReturn(func(pushCtx context.Context, req models.PushRequest) (models.PushResponse, error) {
				assert.Equal(t, []string{"c-3", "c-4"}, changeIDsOf(req.Changes))
				return acceptAll(pushCtx, req)
			}),
	)

	err := svc.DrainOutbox(ctx)
	require.NoError(t, err)

	require.Len(t, localStore.acked, 2)
	assert.Equal(t, []string{"c-1", "c-2"}, localStore.acked[0])
	assert.Equal(t, []string{"c-3", "c-4"}, localStore.acked[1])
}

func TestClientSyncService_DrainOutbox_SingleChangeTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	localStore.batches = [][]models.Change{{outboxChange("c-1", "ent-1")}}

	// одиночное изменение делить больше нечем — ошибка уходит наверх
	mockAdapter.EXPECT().
		Push(ctx, gomock.Any()).
		Return(models.PushResponse{}, fmt.Errorf("%w: payload too big", adapter.ErrBatchTooLarge))

	err := svc.DrainOutbox(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrBatchTooLarge)
	assert.Empty(t, localStore.acked)
}

func TestClientSyncService_DrainOutbox_SettlesConflictsAndRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	localStore.batches = [][]models.Change{{
		outboxChange("c-1", "ent-1"),
		outboxChange("c-2", "ent-2"),
		outboxChange("c-3", "ent-3"),
	}}

	serverWinner := models.SyncedEntity{
		ID:          "ent-2",
		EntityType:  models.EntityTypeLogbookEntry,
		Payload:     json.RawMessage(`{"title":"server copy"}`),
		UpdatedAt:   time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC),
		SyncVersion: 7,
		ChangeID:    "other-device-change",
	}
	newCheckpoint := checkpointAt(15, "ent-3")

	mockAdapter.EXPECT().
		Push(ctx, gomock.Any()).
		Return(models.PushResponse{
			Accepted:      []string{"c-1"},
			Conflicts:     []models.ConflictEntry{{ChangeID: "c-2", ServerEntity: serverWinner}},
			Rejected:      []models.RejectedChange{{ChangeID: "c-3", Reason: "unknown entity type"}},
			NewCheckpoint: newCheckpoint,
		}, nil)

	err := svc.DrainOutbox(ctx)
	require.NoError(t, err)

	// все три исхода сняты с outbox: accepted, conflict и rejected
	require.Len(t, localStore.acked, 1)
	assert.ElementsMatch(t, []string{"c-1", "c-2", "c-3"}, localStore.acked[0])

	require.Len(t, localStore.reconciled, 1)
	require.Len(t, localStore.reconciled[0].entities, 1)
	assert.Equal(t, serverWinner, localStore.reconciled[0].entities[0])
	assert.Equal(t, newCheckpoint, localStore.reconciled[0].checkpoint)
}

func TestClientSyncService_DrainOutbox_TransientErrorKeepsOutbox(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	localStore.batches = [][]models.Change{{outboxChange("c-1", "ent-1")}}

	mockAdapter.EXPECT().
		Push(ctx, gomock.Any()).
		Return(models.PushResponse{}, fmt.Errorf("%w: 503", adapter.ErrServerUnavailable))

	err := svc.DrainOutbox(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrServerUnavailable)
	assert.Empty(t, localStore.acked, "failed push must not remove anything from the outbox")
}

// ── PullChanges ──────────────────────────────────────────────────────────────

func TestClientSyncService_PullChanges_SinglePage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	since := checkpointAt(13, "ent-0")
	nextCheckpoint := checkpointAt(14, "ent-2")
	localStore.checkpoint = since

	page := []models.SyncedEntity{
		{ID: "ent-1", EntityType: models.EntityTypeLogbookEntry, SyncVersion: 3},
		{ID: "ent-2", EntityType: models.EntityTypeLogbookEntry, SyncVersion: 5},
	}

	gomock.InOrder(
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: since}).
			Return(models.PullResponse{Entities: page, NewCheckpoint: nextCheckpoint, Length: 2}, nil),
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: nextCheckpoint}).
			Return(models.PullResponse{NewCheckpoint: nextCheckpoint}, nil),
	)

	err := svc.PullChanges(ctx)
	require.NoError(t, err)

	require.NotEmpty(t, localStore.reconciled)
	assert.Equal(t, page, localStore.reconciled[0].entities)
	assert.Equal(t, nextCheckpoint, localStore.reconciled[0].checkpoint)
}

func TestClientSyncService_PullChanges_PagesUntilCaughtUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	first := checkpointAt(14, "ent-1")
	second := checkpointAt(15, "ent-2")

	gomock.InOrder(
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{}).
			Return(models.PullResponse{
				Entities:      []models.SyncedEntity{{ID: "ent-1", SyncVersion: 1}},
				NewCheckpoint: first,
			}, nil),
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: first}).
			Return(models.PullResponse{
				Entities:      []models.SyncedEntity{{ID: "ent-2", SyncVersion: 2}},
				NewCheckpoint: second,
			}, nil),
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: second}).
			Return(models.PullResponse{NewCheckpoint: second}, nil),
	)

	err := svc.PullChanges(ctx)
	require.NoError(t, err)

	assert.Equal(t, second, localStore.checkpoint)
}

func TestClientSyncService_PullChanges_UnknownCheckpointFallsBackToFullPull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	stale := checkpointAt(1, "ent-old")
	fresh := checkpointAt(15, "ent-9")
	localStore.checkpoint = stale

	gomock.InOrder(
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: stale}).
			Return(models.PullResponse{}, fmt.Errorf("%w: cursor expired", adapter.ErrCheckpointUnknown)),
		// повторный запрос уже без курсора — полная выгрузка
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{}).
			Return(models.PullResponse{
				Entities:      []models.SyncedEntity{{ID: "ent-9", SyncVersion: 4}},
				NewCheckpoint: fresh,
			}, nil),
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: fresh}).
			Return(models.PullResponse{NewCheckpoint: fresh}, nil),
	)

	err := svc.PullChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, localStore.checkpoint)
}

func TestClientSyncService_PullChanges_UnknownCheckpointOnFullPullSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	// курсор и так пустой, второй попытки не будет
	mockAdapter.EXPECT().
		Pull(ctx, models.PullRequest{}).
		Return(models.PullResponse{}, fmt.Errorf("%w: rejected", adapter.ErrCheckpointUnknown))

	err := svc.PullChanges(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrCheckpointUnknown)
}

func TestClientSyncService_PullChanges_TransportErrorSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	mockAdapter.EXPECT().
		Pull(ctx, gomock.Any()).
		Return(models.PullResponse{}, fmt.Errorf("%w: 502", adapter.ErrServerUnavailable))

	err := svc.PullChanges(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrServerUnavailable)
	assert.Empty(t, localStore.reconciled)
}

// ── SyncOnce ─────────────────────────────────────────────────────────────────

func TestClientSyncService_SyncOnce_DrainsThenPulls(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	checkpoint := checkpointAt(14, "ent-1")
	localStore.batches = [][]models.Change{{outboxChange("c-1", "ent-1")}}

	gomock.InOrder(
		mockAdapter.EXPECT().
			Push(ctx, gomock.Any()).
			Return(models.PushResponse{Accepted: []string{"c-1"}, NewCheckpoint: checkpoint}, nil),
		mockAdapter.EXPECT().
			Pull(ctx, models.PullRequest{Since: checkpoint}).
			Return(models.PullResponse{NewCheckpoint: checkpoint}, nil),
	)

	err := svc.SyncOnce(ctx)
	require.NoError(t, err)
}

func TestClientSyncService_SyncOnce_DrainErrorSkipsPull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, localStore, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	localStore.batches = [][]models.Change{{outboxChange("c-1", "ent-1")}}

	// Pull не ожидается: цикл обрывается на неудачном push
	mockAdapter.EXPECT().
		Push(ctx, gomock.Any()).
		Return(models.PushResponse{}, fmt.Errorf("%w: 503", adapter.ErrServerUnavailable))

	err := svc.SyncOnce(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrServerUnavailable)
}

func TestClientSyncService_SyncOnce_EmptyDeviceJustPulls(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _, mockAdapter := newTestClientSyncSvc(t, ctrl)
	ctx := context.Background()

	mockAdapter.EXPECT().
		Pull(ctx, models.PullRequest{}).
		Return(models.PullResponse{}, nil)

	err := svc.SyncOnce(ctx)
	require.NoError(t, err)
}

func changeIDsOf(changes []models.Change) []string {
	ids := make([]string, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ChangeID)
	}
	return ids
}

var _ LocalStoreService = (*stubLocalStore)(nil)
