package service

import (
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/store"
	"github.com/MKhiriev/go-practice-sync/internal/validators"
)

type Services struct {
	AppInfoService AppInfoService
	SyncService    SyncService

	// PayloadValidators lets the business layer replace the shipped
	// shape-only payload checks with richer per-entity-type ones.
	PayloadValidators validators.PayloadRegistry
}

func NewServices(storages *store.Storages, actor OwnerActor, cfg config.StructuredConfig, logger *logger.Logger) (*Services, error) {
	appInfoService, err := NewAppInfoService(cfg.App, logger)
	if err != nil {
		return nil, err
	}

	validator := validators.NewChangeValidator()

	return &Services{
		AppInfoService:    appInfoService,
		SyncService:       NewSyncService(storages.SyncRepository, actor, validator, cfg.Sync, logger),
		PayloadValidators: validator,
	}, nil
}
