package main

import (
	"net/http"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/matiasroldan/ars-rate-service/internal/application/service"
	"github.com/matiasroldan/ars-rate-service/internal/infrastructure/api"
	"github.com/matiasroldan/ars-rate-service/internal/infrastructure/cache"
	"github.com/matiasroldan/ars-rate-service/internal/infrastructure/config"
	"github.com/matiasroldan/ars-rate-service/internal/infrastructure/handler"
	"github.com/matiasroldan/ars-rate-service/internal/infrastructure/middleware"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}

	log.Info("Starting ARS rate service")

	// Cache store
	var badgerOpts badger.Options
	if cfg.Cache.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Cache.Dir, 0755); err != nil {
			log.Fatalf("Failed to create cache directory: %v", err)
		}
		badgerOpts = badger.DefaultOptions(cfg.Cache.Dir)
	}
	badgerOpts.Logger = nil // Disable Badger's default logger

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		log.Fatalf("Failed to open cache store: %v", err)
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.Errorf("Error closing cache store: %v", err)
		}
	}()

	// Upstream client
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
	}
	source := api.NewOficialAPIClient(httpClient, cfg.Upstream.BaseURL, log)

	// Resolver
	store := cache.NewBadgerStore(badgerDB, cfg.Cache.Namespace)
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	resolver := service.NewResolver(source, store, ttl, log)

	// HTTP surface
	rateHandler := handler.NewRateHandler(resolver, log)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	rateHandler.RegisterRoutes(router)

	log.Infof("Server listening on :%s", cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, router))
}
