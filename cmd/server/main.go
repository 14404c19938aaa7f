package main

import (
	"fmt"

	"github.com/MKhiriev/go-practice-sync/internal/broadcast"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	myHTTP "github.com/MKhiriev/go-practice-sync/internal/handler/http"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/server"
	"github.com/MKhiriev/go-practice-sync/internal/service"
	"github.com/MKhiriev/go-practice-sync/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("sync-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}

	// репозиторий отдаёт hub'у стрим владельца для replay после SYNC_REQUEST
	hub := broadcast.NewHub(storages.SyncRepository, cfg.Broadcast, log)

	services, err := service.NewServices(storages, hub, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	handlers := myHTTP.NewHandler(services, hub, storages.SyncRepository, cfg.Auth, log)

	srv, err := server.NewServer(handlers.Init(), hub, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
