package models

import (
	"encoding/json"
	"time"
)

// SyncedEntity is the shape every synchronized record carries.
// It is the primary persistence model on both sides of the sync engine:
// the server stores it as the authoritative row, the client as the latest
// known local copy. The engine is agnostic to the payload content.
type SyncedEntity struct {
	// ID is the globally unique identifier of the record.
	// It is generated on the client at creation time (never by the server)
	// so that records can be created offline without coordination.
	ID string `json:"id"`

	// EntityType is the discriminator used to route the record
	// (e.g. logbook_entry, goal, plan_occurrence).
	// The engine never interprets the payload behind it.
	EntityType string `json:"entity_type"`

	// OwnerID is the authenticated user who exclusively owns the record.
	// Records are never merged or exposed across owners.
	OwnerID int64 `json:"owner_id"`

	// Payload holds the type-specific fields as an opaque JSON document.
	// Validation of its content belongs to the business layer.
	Payload json.RawMessage `json:"payload"`

	// UpdatedAt is the server-assigned timestamp of the last accepted write.
	// Before acknowledgment the client holds a provisional local value;
	// after acknowledgment the server value is authoritative.
	UpdatedAt time.Time `json:"updated_at"`

	// SyncVersion is incremented by the server on every accepted write.
	// It is the cheap conflict fast-path: a change whose BaseSyncVersion
	// equals the current SyncVersion applies without conflict resolution.
	SyncVersion int64 `json:"sync_version"`

	// DeletedAt marks the record as soft-deleted when non-nil.
	// Deleted records are never removed by the engine; they stay
	// resolvable so that a concurrent edit on another device can still
	// be reconciled.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// ChangeID is the identifier of the change that produced the current
	// version. It gives conflict resolution a total order when two writes
	// carry the same timestamp.
	ChangeID string `json:"change_id"`
}

// Deleted reports whether the entity carries a soft-delete marker.
func (e *SyncedEntity) Deleted() bool {
	return e.DeletedAt != nil
}

// TableName returns the name of the database table
// associated with the SyncedEntity model on the server side.
func (e *SyncedEntity) TableName() string {
	return "sync_entities"
}

// EntitySnapshot is what the local store hands to its callers: the latest
// known state of an entity plus a flag telling whether a local change for
// it is still waiting in the outbox.
type EntitySnapshot struct {
	SyncedEntity

	// Pending is true while at least one outbox change for this entity
	// has not yet been acknowledged by the server.
	Pending bool `json:"pending"`
}
