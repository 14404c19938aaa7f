package config

import "errors"

// Validation errors returned when required configuration groups are
// incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates invalid client adapter settings
	// (for example, missing server address or request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid client storage settings
	// (for example, empty DSN or unsupported in-memory DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAuthConfigs indicates invalid authentication settings
	// required by the client (for example, missing bearer token).
	ErrInvalidAuthConfigs = errors.New("invalid auth configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero sync interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
	// ErrInvalidSyncConfigs indicates incoherent sync limits
	// (for example, a negative batch size or page limit).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidBroadcastConfigs indicates incoherent broadcast settings
	// (for example, a negative send buffer).
	ErrInvalidBroadcastConfigs = errors.New("invalid broadcast configuration")
)
