package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// Version is the semantic version string of the running agent.
	Version string
}

// ClientAuth holds the credentials the device agent presents to the server.
type ClientAuth struct {
	// Token is the pre-issued bearer token sent on every request.
	Token string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the remote sync server address used by the client.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string for the agent's local store.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientWorkers contains client background job settings.
type ClientWorkers struct {
	// SyncInterval defines how often the outbox drain job runs.
	SyncInterval time.Duration
	// BatchSize is the number of outbox changes drained per push.
	BatchSize int
	// RetryWaitMin is the initial backoff delay for transient failures.
	RetryWaitMin time.Duration
	// RetryWaitMax caps the exponential backoff delay.
	RetryWaitMax time.Duration
	// RetryJitterPercent spreads backoff waits by ±N percent.
	RetryJitterPercent uint64
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Auth contains the bearer token presented to the server.
	Auth ClientAuth
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the device agent runtime, and validates the resulting
// [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			Version: cfg.App.Version,
		},
		Auth: ClientAuth{
			Token: cfg.Auth.ClientToken,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Workers: ClientWorkers{
			SyncInterval:       cfg.Workers.SyncInterval,
			BatchSize:          cfg.Workers.BatchSize,
			RetryWaitMin:       cfg.Workers.RetryWaitMin,
			RetryWaitMax:       cfg.Workers.RetryWaitMax,
			RetryJitterPercent: cfg.Workers.RetryJitterPercent,
		},
	}

	return clientCfg, clientCfg.validate()
}
