// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// EventType discriminates the frames exchanged over the realtime channel.
type EventType string

const (
	// EventEntityUpserted notifies other live sessions of an owner that
	// an entity was created or updated by an accepted push.
	EventEntityUpserted EventType = "ENTITY_UPSERTED"

	// EventEntityDeleted notifies other live sessions that an entity was
	// soft-deleted by an accepted push.
	EventEntityDeleted EventType = "ENTITY_DELETED"

	// EventSyncRequest is sent client→server by a reconnecting session
	// asking the owner actor to replay entities changed since the
	// supplied checkpoint, without a full pull round-trip.
	EventSyncRequest EventType = "SYNC_REQUEST"

	// EventSyncRequestAck closes a SYNC_REQUEST replay and carries the
	// checkpoint the session is now caught up to.
	EventSyncRequestAck EventType = "SYNC_REQUEST_ACK"
)

// NewEntityEvent builds the realtime frame announcing an accepted write:
// ENTITY_DELETED for a tombstone, ENTITY_UPSERTED with the full winning
// state otherwise.
func NewEntityEvent(entity SyncedEntity) Event {
	if entity.Deleted() {
		return Event{
			Type:        EventEntityDeleted,
			EntityID:    entity.ID,
			EntityType:  entity.EntityType,
			SyncVersion: entity.SyncVersion,
		}
	}

	return Event{
		Type:   EventEntityUpserted,
		Entity: &entity,
	}
}

// Event is the wire envelope for realtime channel frames. Exactly the
// fields relevant to the Type are populated; the rest stay empty.
type Event struct {
	// Type tells the receiver how to interpret the frame.
	Type EventType `json:"type"`

	// Entity carries the full winning state for ENTITY_UPSERTED frames.
	Entity *SyncedEntity `json:"entity,omitempty"`

	// EntityID identifies the removed record for ENTITY_DELETED frames.
	EntityID string `json:"entity_id,omitempty"`

	// EntityType is the discriminator for ENTITY_DELETED frames.
	EntityType string `json:"entity_type,omitempty"`

	// SyncVersion is the version assigned by the accepted write that
	// produced an ENTITY_UPSERTED or ENTITY_DELETED frame.
	SyncVersion int64 `json:"sync_version,omitempty"`

	// Since is the checkpoint a SYNC_REQUEST wants to catch up from.
	Since SyncCheckpoint `json:"since,omitempty"`

	// Checkpoint is the position a SYNC_REQUEST_ACK confirms.
	Checkpoint SyncCheckpoint `json:"checkpoint,omitempty"`
}
