package service

import (
	"github.com/MKhiriev/go-practice-sync/internal/adapter"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/store"
	"github.com/MKhiriev/go-practice-sync/internal/validators"
	"github.com/MKhiriev/go-practice-sync/internal/workers"
)

// ClientServices bundles everything the device agent runs on: the local
// store gatekeeper, the sync engine and the two background workers.
type ClientServices struct {
	LocalStore  LocalStoreService
	SyncService ClientSyncService

	// SyncJob periodically drains the outbox and pulls remote changes.
	SyncJob workers.Worker
	// Realtime keeps the live event channel to the server.
	Realtime workers.Worker
}

// NewClientServices wires the device-side service graph on top of the
// local storages and the server adapter.
func NewClientServices(storages *store.ClientStorages, serverAdapter adapter.ServerAdapter, cfg *config.ClientConfig, logger *logger.Logger) *ClientServices {
	validator := validators.NewChangeValidator()
	localStore := NewLocalStoreService(storages.SyncRepository, validator, logger)
	syncService := NewClientSyncService(localStore, serverAdapter, cfg.Workers, logger)

	return &ClientServices{
		LocalStore:  localStore,
		SyncService: syncService,
		SyncJob:     NewSyncJob(syncService, cfg.Workers, logger),
		Realtime:    NewRealtimeService(serverAdapter, localStore, syncService, cfg.Workers, logger),
	}
}
