package models

// PushResponse reports the fate of every change in a push batch. Each
// change id appears in exactly one of Accepted, Conflicts or Rejected.
type PushResponse struct {
	// Accepted lists the change ids the server applied. Replaying an
	// already-recorded change id lands here again with no side effects.
	Accepted []string `json:"accepted"`

	// Conflicts lists the changes that lost conflict resolution, each
	// paired with the winning server entity so the client can reconcile
	// its local copy without an extra round-trip.
	Conflicts []ConflictEntry `json:"conflicts,omitempty"`

	// Rejected lists the changes that failed shape validation. A
	// rejection is terminal for that one change and never blocks the
	// remaining entries of the batch.
	Rejected []RejectedChange `json:"rejected,omitempty"`

	// NewCheckpoint is the position the client may persist after this
	// push. It advances past the batch's own writes only when the client
	// was fully caught up; otherwise it echoes the request's Since.
	NewCheckpoint SyncCheckpoint `json:"new_checkpoint"`
}

// ConflictEntry pairs a losing change with the entity state that won.
type ConflictEntry struct {
	// ChangeID is the idempotency key of the losing change.
	ChangeID string `json:"change_id"`

	// ServerEntity is the authoritative state after resolution.
	ServerEntity SyncedEntity `json:"server_entity"`
}

// RejectedChange describes a change refused by shape validation.
type RejectedChange struct {
	// ChangeID is the idempotency key of the refused change.
	ChangeID string `json:"change_id"`

	// Reason is a human-readable explanation suitable for surfacing to
	// the business layer alongside the change id.
	Reason string `json:"reason"`
}

// PullResponse carries every entity changed after the requested
// checkpoint, soft-deletes included, ordered by (updated_at, id).
type PullResponse struct {
	// Entities is the result page in cursor order.
	Entities []SyncedEntity `json:"entities"`

	// NewCheckpoint addresses the last returned row. Replaying it on the
	// next pull resumes exactly where this page ended.
	NewCheckpoint SyncCheckpoint `json:"new_checkpoint"`

	// Length is the total number of entries in Entities.
	// Provided for convenience so the client can pre-allocate
	// or validate the response without iterating the slice.
	Length int `json:"length"`
}

// ErrorResponse is the JSON body returned by handlers on failure.
type ErrorResponse struct {
	// Error is a short human-readable description of the failure.
	Error string `json:"error"`
}
