// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "strings"

// validate checks cross-field coherence of whatever groups were populated.
// This config is shared by both binaries, so presence requirements live with
// the per-binary views: the server fails fast on connect when the DSN is
// missing, and [ClientConfig.validate] enforces the device agent's groups.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.MaxBatchSize < 0 || cfg.Sync.PullPageLimit < 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Broadcast.SendBuffer < 0 || cfg.Broadcast.ActorIdleAfter < 0 {
		return ErrInvalidBroadcastConfigs
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout == 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval == 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Auth.Token == "" {
		return ErrInvalidAuthConfigs
	}

	return nil
}
