// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package resolve implements the conflict resolution policy shared by the
// server and the device client: last-write-wins by timestamp with a
// deterministic change-id tiebreak.
//
// The function here must stay pure — no clocks, no randomness, no I/O.
// The client runs it optimistically while reconciling pulled or broadcast
// state against pending outbox changes; the server runs the very same code
// authoritatively when a pushed change misses its base version. Any
// divergence between the two call sites would let the two sides settle the
// same conflict differently, which is the one bug this engine cannot
// tolerate.
package resolve

import (
	"github.com/MKhiriev/go-practice-sync/models"
)

// Winner tells which side of a conflict stands after resolution.
type Winner int

const (
	// WinnerServer means the current server entity stays authoritative
	// and the local change loses.
	WinnerServer Winner = iota

	// WinnerLocal means the local change supersedes the server entity.
	WinnerLocal
)

// String implements [fmt.Stringer] for readable logs and test output.
func (w Winner) String() string {
	switch w {
	case WinnerLocal:
		return "local"
	case WinnerServer:
		return "server"
	default:
		return "unknown"
	}
}

// Resolve picks a winner between a local change attempt and the current
// server state of the same entity.
//
// Policy, in order:
//  1. Later timestamp wins: the attempt's ClientTimestamp is compared
//     against the server entity's UpdatedAt.
//  2. On equal timestamps (clock skew, batched writes) the change with the
//     lexicographically greater change id wins. The server entity carries
//     the id of the change that produced it, so the comparison totally
//     orders any pair of writes without synchronized clocks.
//  3. Identical change ids mean the attempt IS the server's last accepted
//     write (a replay); the server state stands.
//
// A delete is an update to DeletedAt and receives no special treatment:
// it wins or loses by the same comparison as any payload edit.
func Resolve(local models.Change, server models.SyncedEntity) Winner {
	if local.ClientTimestamp.After(server.UpdatedAt) {
		return WinnerLocal
	}
	if local.ClientTimestamp.Before(server.UpdatedAt) {
		return WinnerServer
	}

	// Equal timestamps: total order via change ids.
	if local.ChangeID > server.ChangeID {
		return WinnerLocal
	}

	return WinnerServer
}
