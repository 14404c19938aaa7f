// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-practice-sync/internal/adapter"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
)

const defaultDrainBatchSize = 100

// clientSyncService is the concrete implementation of ClientSyncService.
//
// It owns no state of its own: the outbox and the checkpoint live in the
// local store, so a cycle interrupted at any point resumes cleanly on the
// next call. The crash window between a successful push and the outbox
// acknowledgement is covered by change ids: the server's idempotency ledger
// replays recorded outcomes instead of applying the batch twice.
type clientSyncService struct {
	localStore LocalStoreService
	adapter    adapter.ServerAdapter

	batchSize int

	logger *logger.Logger
}

// NewClientSyncService constructs the device-side sync engine. A zero batch
// size falls back to the built-in limit.
func NewClientSyncService(localStore LocalStoreService, serverAdapter adapter.ServerAdapter, cfg config.ClientWorkers, logger *logger.Logger) ClientSyncService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultDrainBatchSize
	}

	return &clientSyncService{
		localStore: localStore,
		adapter:    serverAdapter,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// SyncOnce implements ClientSyncService.
//
// Drain runs first so the server resolves conflicts against the freshest
// local changes; the pull then brings back everything the device missed,
// conflict winners included, and advances the checkpoint.
func (s *clientSyncService) SyncOnce(ctx context.Context) error {
	if err := s.DrainOutbox(ctx); err != nil {
		return err
	}

	return s.PullChanges(ctx)
}

// DrainOutbox implements ClientSyncService.
func (s *clientSyncService) DrainOutbox(ctx context.Context) error {
	for {
		batch, err := s.localStore.NextBatch(ctx, s.batchSize)
		if err != nil {
			return fmt.Errorf("read outbox batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		if err := s.pushBatch(ctx, batch); err != nil {
			return err
		}
	}
}

// pushBatch sends one outbox slice to the server and settles the response.
// A batch the server refuses as too large is split in half and resent; a
// single change that is still too large cannot be split further and
// surfaces the error to the caller.
func (s *clientSyncService) pushBatch(ctx context.Context, changes []models.Change) error {
	since, err := s.localStore.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	response, err := s.adapter.Push(ctx, models.PushRequest{Changes: changes, Since: since})
	if errors.Is(err, adapter.ErrBatchTooLarge) && len(changes) > 1 {
		half := len(changes) / 2
		s.logger.Debug().
			Int("changes", len(changes)).
			Msg("push batch refused as too large, splitting")

		if err := s.pushBatch(ctx, changes[:half]); err != nil {
			return err
		}
		return s.pushBatch(ctx, changes[half:])
	}
	if err != nil {
		return fmt.Errorf("push outbox batch: %w", err)
	}

	return s.settlePush(ctx, response)
}

// settlePush acknowledges every settled change and reconciles conflict
// winners. Acknowledge runs first: once the conflicted entries leave the
// outbox they no longer count as pending, so the server winner lands in the
// cache instead of losing to its own stale challenger.
func (s *clientSyncService) settlePush(ctx context.Context, response models.PushResponse) error {
	settled := make([]string, 0, len(response.Accepted)+len(response.Conflicts)+len(response.Rejected))
	settled = append(settled, response.Accepted...)

	winners := make([]models.SyncedEntity, 0, len(response.Conflicts))
	for _, conflict := range response.Conflicts {
		settled = append(settled, conflict.ChangeID)
		winners = append(winners, conflict.ServerEntity)
	}

	for _, rejected := range response.Rejected {
		settled = append(settled, rejected.ChangeID)
		s.logger.Warn().
			Str("change_id", rejected.ChangeID).
			Str("reason", rejected.Reason).
			Msg("server rejected local change, dropping it from the outbox")
	}

	if err := s.localStore.Acknowledge(ctx, settled); err != nil {
		return fmt.Errorf("acknowledge settled changes: %w", err)
	}

	if err := s.localStore.Reconcile(ctx, winners, response.NewCheckpoint); err != nil {
		return fmt.Errorf("reconcile conflict winners: %w", err)
	}

	s.logger.Debug().
		Int("accepted", len(response.Accepted)).
		Int("conflicts", len(response.Conflicts)).
		Int("rejected", len(response.Rejected)).
		Msg("outbox batch settled")

	return nil
}

// PullChanges implements ClientSyncService.
func (s *clientSyncService) PullChanges(ctx context.Context) error {
	since, err := s.localStore.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	for {
		response, err := s.adapter.Pull(ctx, models.PullRequest{Since: since})
		if errors.Is(err, adapter.ErrCheckpointUnknown) && !since.Zero() {
			// сервер больше не узнаёт курсор — тянем всё с нуля
			s.logger.Warn().Msg("stored checkpoint no longer recognized, falling back to full pull")
			since = ""
			continue
		}
		if err != nil {
			return fmt.Errorf("pull changes: %w", err)
		}

		if err := s.localStore.Reconcile(ctx, response.Entities, response.NewCheckpoint); err != nil {
			return fmt.Errorf("reconcile pulled entities: %w", err)
		}

		// пустая страница или курсор не сдвинулся — догнали сервер
		if len(response.Entities) == 0 || response.NewCheckpoint == since {
			return nil
		}
		since = response.NewCheckpoint
	}
}
