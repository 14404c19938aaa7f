// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// ChangeOp names the kind of local mutation recorded in a Change.
type ChangeOp string

const (
	// OpUpsert creates an entity or replaces its payload.
	OpUpsert ChangeOp = "upsert"

	// OpDelete soft-deletes an entity. Deletions travel the same path as
	// updates so that offline peers learn about them on their next pull.
	OpDelete ChangeOp = "delete"
)

// Valid reports whether op is a known operation.
func (op ChangeOp) Valid() bool {
	switch op {
	case OpUpsert, OpDelete:
		return true
	}
	return false
}

// Change is a single recorded local mutation: one row of a device's
// outbox, and one element of a push batch on the wire.
type Change struct {
	// ChangeID identifies the change across retries. The server uses it
	// to deduplicate redelivered batches, so it must stay stable for the
	// lifetime of the change.
	ChangeID string `json:"change_id" db:"change_id"`

	// EntityID is the id of the entity the change targets.
	EntityID string `json:"entity_id" db:"entity_id"`

	// EntityType tags the payload schema, e.g. "logbook_entry".
	EntityType string `json:"entity_type" db:"entity_type"`

	// Op is what happened: upsert or delete.
	Op ChangeOp `json:"op" db:"op"`

	// Payload is the full entity body for an upsert. Deletes may omit it.
	Payload json.RawMessage `json:"payload,omitempty" db:"payload"`

	// ClientTimestamp is the device wall-clock time of the mutation. It
	// participates in conflict resolution only; the authoritative
	// UpdatedAt of the winning state is assigned by the server.
	ClientTimestamp time.Time `json:"client_timestamp" db:"client_timestamp"`

	// BaseSyncVersion is the SyncVersion the device had observed for the
	// entity when the change was recorded. Zero means the entity was
	// unknown locally.
	BaseSyncVersion int64 `json:"base_sync_version" db:"base_sync_version"`
}

// TableName returns the local table a device's pending changes live in.
func (Change) TableName() string {
	return "outbox"
}

// Change outcomes recorded in the server's idempotency ledger.
const (
	// OutcomeAccepted marks a change whose write won and was applied.
	OutcomeAccepted = "accepted"

	// OutcomeConflict marks a change that lost conflict resolution; the
	// entity keeps the competing state.
	OutcomeConflict = "conflict"
)

// ChangeOutcome is one row of the server's idempotency ledger: the
// verdict for a processed ChangeID. Redelivered changes are answered
// from the ledger instead of being applied twice.
type ChangeOutcome struct {
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	ChangeID    string    `json:"change_id" db:"change_id"`
	EntityID    string    `json:"entity_id" db:"entity_id"`
	Outcome     string    `json:"outcome" db:"outcome"`
	SyncVersion int64     `json:"sync_version" db:"sync_version"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
}

// TableName returns the ledger table name.
func (ChangeOutcome) TableName() string {
	return "sync_changes"
}
