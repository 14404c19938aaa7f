// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// sync server handlers and middleware.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies to describe the outcome of an operation. Keeping them
// in one place ensures consistent wording throughout the API.
package app

const (
	// MsgUnauthorized is returned when a handler requires an authenticated
	// owner but the request context carries none.
	MsgUnauthorized = "unauthorized"

	// MsgInvalidJSONProvided is returned when the request body cannot be
	// decoded as JSON.
	MsgInvalidJSONProvided = "invalid JSON was passed"

	// MsgTokenIsExpired is returned when a JWT bearer token is syntactically
	// valid but its expiry time has passed.
	MsgTokenIsExpired = "token expired"

	// MsgStorageNotReachable is returned by the health endpoint when the
	// database behind the sync store does not answer.
	MsgStorageNotReachable = "database is not reachable"
)
