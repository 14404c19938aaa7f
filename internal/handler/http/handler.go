package http

import (
	"context"

	"github.com/MKhiriev/go-practice-sync/internal/broadcast"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/service"
)

// Pinger reports backend health for the /ping endpoint. The server's sync
// repository satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	services *service.Services
	hub      *broadcast.Hub
	pinger   Pinger

	// authCfg carries the token verification settings for the auth
	// middleware; token issuance lives outside this application.
	authCfg config.Auth

	logger *logger.Logger
}

func NewHandler(services *service.Services, hub *broadcast.Hub, pinger Pinger, authCfg config.Auth, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		hub:      hub,
		pinger:   pinger,
		authCfg:  authCfg,
		logger:   logger,
	}
}
