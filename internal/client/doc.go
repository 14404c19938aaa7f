// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the headless device agent runtime.
//
// The agent keeps a single device's local SQLite state converged with the
// sync server: a periodic job drains the outbox and pulls remote changes,
// while a realtime worker holds a websocket session for low-latency updates.
package client
