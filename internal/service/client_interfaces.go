// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/go-practice-sync/models"
)

// LocalStoreService is the single gatekeeper for device state. Every local
// mutation goes through it: optimistic writes from the application, server
// state landing during reconciliation and outbox acknowledgements. The
// service serializes mutations internally, so the application and the sync
// loop may call it concurrently.
type LocalStoreService interface {
	// Apply records an optimistic local write. Missing change metadata is
	// filled in (changeId, clientTimestamp, entityId for new upserts), the
	// change is validated, baseSyncVersion is captured from the current
	// local row and both the provisional entity state and the outbox entry
	// are persisted in one transaction. The provisional row advances one
	// version past its base, so queued edits of one entity chain their
	// bases instead of sharing one. The returned snapshot always has
	// Pending set.
	Apply(ctx context.Context, change models.Change) (models.EntitySnapshot, error)

	// Get returns the local snapshot of one entity, provisional state
	// included. Returns [store.ErrEntityNotFound] for unknown ids.
	Get(ctx context.Context, entityID string) (models.EntitySnapshot, error)

	// List returns local snapshots matching the filter, newest first.
	List(ctx context.Context, filter models.ReadFilter) ([]models.EntitySnapshot, error)

	// Reconcile folds authoritative server entities into the local cache.
	// An entity with a pending local change that beats the server state is
	// left untouched so the provisional view survives until the outbox
	// drains; everything else is overwritten with the server row. A
	// non-zero checkpoint is persisted afterwards.
	Reconcile(ctx context.Context, entities []models.SyncedEntity, checkpoint models.SyncCheckpoint) error

	// NextBatch returns up to limit outbox changes in capture order
	// without removing them.
	NextBatch(ctx context.Context, limit int) ([]models.Change, error)

	// Acknowledge removes settled changes from the outbox. Unknown ids are
	// ignored so acknowledging a replayed batch is harmless.
	Acknowledge(ctx context.Context, changeIDs []string) error

	// PendingCount reports how many changes wait in the outbox.
	PendingCount(ctx context.Context) (int, error)

	// Checkpoint returns the last durably stored sync cursor, zero before
	// the first completed pull.
	Checkpoint(ctx context.Context) (models.SyncCheckpoint, error)
}

// ClientSyncService drives the exchange with the server: it drains the
// outbox and pages pulled changes into the local store. One instance is
// shared by the periodic job and the realtime channel.
type ClientSyncService interface {
	// SyncOnce runs a full cycle: drain the outbox, then pull remote
	// changes. Safe to call at any time; a failed cycle leaves the outbox
	// and checkpoint intact so the next cycle simply retries.
	SyncOnce(ctx context.Context) error

	// DrainOutbox pushes pending changes in batches until the outbox is
	// empty. Batches rejected as too large are split and resent. Accepted,
	// conflicted and rejected changes are acknowledged; conflict winners
	// are reconciled into the local cache.
	DrainOutbox(ctx context.Context) error

	// PullChanges pages changes since the stored checkpoint into the local
	// store, advancing the checkpoint after each page. An unknown
	// checkpoint falls back to a full pull from the beginning.
	PullChanges(ctx context.Context) error
}
