package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedCheckpoint is returned when a presented checkpoint cannot be
// decoded. A client holding such a checkpoint is out of protocol sync and
// must fall back to a full pull.
var ErrMalformedCheckpoint = errors.New("malformed sync checkpoint")

// SyncCheckpoint is the opaque cursor returned by the server on every pull
// and push. It represents "the latest state this client has seen".
//
// Clients never construct or inspect checkpoints; they only persist the
// last received value and replay it on the next request. The encoding is
// a server-side implementation detail and may change between releases.
type SyncCheckpoint string

// Zero reports whether the checkpoint is empty. An empty checkpoint on a
// pull means "full sync": the server returns everything the owner has.
func (c SyncCheckpoint) Zero() bool {
	return c == ""
}

// String implements [fmt.Stringer].
func (c SyncCheckpoint) String() string {
	return string(c)
}

// StreamPosition is the server-side decoded form of a [SyncCheckpoint]:
// a point in an owner's update stream, which is totally ordered by
// (UpdatedAt, ID). The zero value addresses the start of the stream.
type StreamPosition struct {
	// UpdatedAt is the server-assigned timestamp of the addressed row.
	UpdatedAt time.Time

	// ID is the entity id of the addressed row, breaking UpdatedAt ties.
	ID string
}

// Zero reports whether the position addresses the start of the stream.
func (p StreamPosition) Zero() bool {
	return p.UpdatedAt.IsZero() && p.ID == ""
}

// After reports whether p addresses a strictly later point of the stream
// than other.
func (p StreamPosition) After(other StreamPosition) bool {
	if !p.UpdatedAt.Equal(other.UpdatedAt) {
		return p.UpdatedAt.After(other.UpdatedAt)
	}
	return p.ID > other.ID
}

// checkpointClaims is the serialized interior of a checkpoint. The short
// keys keep the base64 form compact; clients never see them.
type checkpointClaims struct {
	UpdatedAt time.Time `json:"u"`
	ID        string    `json:"i"`
}

// NewSyncCheckpoint encodes a stream position into its opaque wire form.
// The zero position encodes to the empty checkpoint.
func NewSyncCheckpoint(pos StreamPosition) SyncCheckpoint {
	if pos.Zero() {
		return ""
	}

	raw, err := json.Marshal(checkpointClaims{UpdatedAt: pos.UpdatedAt, ID: pos.ID})
	if err != nil {
		// a time.Time and a string cannot fail to marshal
		return ""
	}

	return SyncCheckpoint(base64.RawURLEncoding.EncodeToString(raw))
}

// Position decodes the checkpoint back into a stream position. The empty
// checkpoint decodes to the zero position. Anything the engine did not
// produce comes back as [ErrMalformedCheckpoint].
func (c SyncCheckpoint) Position() (StreamPosition, error) {
	if c.Zero() {
		return StreamPosition{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return StreamPosition{}, fmt.Errorf("%w: %w", ErrMalformedCheckpoint, err)
	}

	var claims checkpointClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return StreamPosition{}, fmt.Errorf("%w: %w", ErrMalformedCheckpoint, err)
	}

	if claims.UpdatedAt.IsZero() && claims.ID == "" {
		return StreamPosition{}, fmt.Errorf("%w: empty claims", ErrMalformedCheckpoint)
	}

	return StreamPosition{UpdatedAt: claims.UpdatedAt, ID: claims.ID}, nil
}
