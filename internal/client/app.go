package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/adapter"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/service"
	"github.com/MKhiriev/go-practice-sync/internal/store"
	"github.com/MKhiriev/go-practice-sync/internal/utils"
	"github.com/MKhiriev/go-practice-sync/internal/workers"
	"github.com/google/uuid"
)

const startupProbeTimeout = 5 * time.Second

// App is the device agent: it owns the local store, the server adapter and
// the background workers that keep both sides converged.
type App struct {
	services *service.ClientServices
	adapter  adapter.ServerAdapter
	logger   *logger.Logger
}

// NewApp assembles the agent from environment configuration.
func NewApp() (*App, error) {
	cfg, err := config.GetClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}

	log := logger.NewClientLogger("agent")

	storages, err := store.NewClientStorages(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	// каждый запуск агента — отдельная realtime-сессия
	sessionID := uuid.NewString()

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, sessionID, log)
	if err != nil {
		return nil, fmt.Errorf("create server adapter: %w", err)
	}

	// токен нередко вставляют в конфиг вместе со схемой: "Bearer <jwt>"
	token := cfg.Auth.Token
	if strings.Contains(token, " ") {
		if stripped, perr := utils.ParseBearerToken(token); perr == nil {
			token = stripped
		}
	}
	serverAdapter.SetToken(token)

	services := service.NewClientServices(storages, serverAdapter, cfg, log)

	ownerID, err := utils.ParseOwnerIDFromJWT(token)
	if err != nil {
		log.Warn().Err(err).Msg("configured token is not a readable JWT")
	}

	log.Info().
		Str("version", cfg.App.Version).
		Str("session_id", sessionID).
		Int64("owner_id", ownerID).
		Msg("device agent initialized")

	return &App{
		services: services,
		adapter:  serverAdapter,
		logger:   log,
	}, nil
}

// Run starts the sync workers and blocks until the process receives an
// interrupt or termination signal. Local edits made by other processes keep
// accumulating in the outbox either way; the agent only moves them.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probeCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	err := a.adapter.Ping(probeCtx)
	cancel()
	if err != nil {
		a.logger.Warn().Err(err).Msg("server is not reachable, starting offline")
	}

	a.logger.Info().Msg("device agent started")
	workers.New(a.services.SyncJob, a.services.Realtime).Run(ctx)
	a.logger.Info().Msg("device agent stopped")

	return nil
}
