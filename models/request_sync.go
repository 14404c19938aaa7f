// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// PushRequest is sent by a client to reconcile a batch of local changes
// against server state. All changes must belong to the authenticated
// caller; the server refuses oversized batches with a retryable error
// rather than silently truncating them.
type PushRequest struct {
	// Changes is the outbox batch, in the order the device produced it.
	Changes []Change `json:"changes"`

	// Since is the last checkpoint this client pulled up to. The server
	// uses it to decide whether the response checkpoint may advance past
	// the batch's own writes.
	Since SyncCheckpoint `json:"since"`

	// Length is the total number of entries in Changes.
	// Provided for convenience so the server can validate the batch
	// without iterating the slice.
	Length int `json:"length"`
}

// PullRequest asks the server for every entity changed after the given
// checkpoint, scoped to the authenticated caller.
type PullRequest struct {
	// Since is the cursor of the last pull. Empty means full sync —
	// the first-ever sync on a new device.
	Since SyncCheckpoint `json:"since"`

	// EntityTypes optionally narrows the result to the listed
	// discriminators. Empty means all types.
	EntityTypes []string `json:"entity_types,omitempty"`

	// Limit optionally caps the page size. The server clamps it to its
	// configured maximum; zero means "server default".
	Limit int `json:"limit,omitempty"`
}
