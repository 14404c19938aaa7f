// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer abstractions for talking to the
// remote sync server from the device agent.
//
// The primary abstraction is [ServerAdapter], which decouples the client
// service layer from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPServerAdapter]) built on resty.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrCheckpointUnknown] for 422, [ErrBatchTooLarge]
// for 413).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-practice-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines transport-agnostic communication with the sync
// server. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
type ServerAdapter interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent authenticated requests. The device agent calls it once at
	// startup with its pre-issued token.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or an
	// empty string if no token has been set yet.
	Token() string

	// SessionID returns the session identifier this adapter presents on
	// every request. The server uses it to exclude this device from the
	// realtime echo of its own pushes.
	SessionID() string

	// Push sends a batch of outbox changes to the server and returns the
	// per-change verdicts. The request body is gzip-compressed. Returns
	// [ErrBatchTooLarge] (wrapped) when the server refuses the batch size,
	// so the caller can split the batch and retry.
	Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error)

	// Pull fetches every entity changed after req.Since, one page per call.
	// Returns [ErrCheckpointUnknown] (wrapped) when the server no longer
	// recognises the cursor; the caller must restart with an empty
	// checkpoint (full sync).
	Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error)

	// Ping probes server reachability via the unauthenticated health
	// endpoint. Used by the agent at startup to decide whether to log a
	// connectivity warning before continuing offline.
	Ping(ctx context.Context) error

	// RealtimeEndpoint returns the websocket URL of the server's realtime
	// feed, derived from the configured base address.
	RealtimeEndpoint() string
}
