package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tuyabridge/config"
	"tuyabridge/internal/api"
	"tuyabridge/internal/api/handlers"
	"tuyabridge/internal/devices"
	"tuyabridge/internal/logging"
	"tuyabridge/internal/poller"
	"tuyabridge/internal/storage"
	"tuyabridge/internal/storage/file"
	"tuyabridge/internal/storage/sqlite"
	"tuyabridge/internal/tuya"
	"tuyabridge/internal/tuya/auth"
	"tuyabridge/internal/tuya/sharing"
	"tuyabridge/internal/tuya/signed"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "Log format: json or text")
	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: *logFormat,
		Level:  logging.ParseLevel(*logLevel),
	})

	// Initialize storage
	var credStore storage.CredentialStore
	var mappingStore storage.MappingStore

	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		logger.Info("Initializing SQLite storage", "component", "main", "path", cfg.Storage.Path)
		db, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		credStore = db
		mappingStore = db
	default:
		logger.Info("Initializing file storage", "component", "main", "path", cfg.Storage.Path)
		credStore = file.New(cfg.Storage.Path, logger)
	}

	// Build the protocol client and token manager. The two are mutually
	// dependent for the plain protocol (the client's retry path calls the
	// manager, the manager's refresher calls the client), so the refresher's
	// client field is bound after construction.
	var client tuya.Client
	var linker handlers.Linker
	var manager *auth.Manager

	switch cfg.Tuya.Protocol {
	case config.ProtocolSigned:
		logger.Info("Using plain-signed protocol", "component", "main", "base_url", cfg.Tuya.BaseURL)
		refresher := &auth.NetworkRefresher{}
		manager = auth.NewManager(refresher, logger)
		signedClient := signed.NewClient(signed.Config{
			BaseURL:  cfg.Tuya.BaseURL,
			ClientID: cfg.Tuya.ClientID,
		}, manager, logger)
		refresher.Client = signedClient
		client = signedClient

	case config.ProtocolSharing:
		logger.Info("Using encrypted sharing protocol", "component", "main", "base_url", cfg.Tuya.BaseURL)
		manager = auth.NewManager(&auth.LocalExtender{}, logger)
		sharingClient := sharing.NewClient(sharing.Config{
			BaseURL: cfg.Tuya.BaseURL,
			AppKey:  cfg.Tuya.AppKey,
		}, manager, logger)
		client = sharingClient
		linker = sharingClient
	}

	defer manager.Close()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startupCancel()

	// Persist every token replacement so a restart resumes the linked session
	manager.AddListener(func(tokens *tuya.TokenSet) {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := credStore.Save(saveCtx, &storage.StoredCredentials{
			UserCode:   cfg.Tuya.UserCode,
			TokenInfo:  tokens,
			TerminalID: tokens.TerminalID,
			Endpoint:   tokens.Endpoint,
		})
		if err != nil {
			logger.Error("Failed to persist credentials", "component", "main", "error", err)
		}
	})

	// Restore persisted credentials, if any
	if creds, err := credStore.Load(startupCtx); err != nil {
		return fmt.Errorf("failed to load stored credentials: %w", err)
	} else if creds != nil {
		tokens := creds.TokenInfo
		if tokens.TerminalID == "" {
			tokens.TerminalID = creds.TerminalID
		}
		if tokens.Endpoint == "" {
			tokens.Endpoint = creds.Endpoint
		}
		logger.Info("Restored stored credentials", "component", "main", "uid", tokens.UID)
		manager.SetTokens(tokens)
	} else {
		logger.Info("No stored credentials, account linking required", "component", "main")
	}

	// Device pipeline
	translator, err := devices.NewTranslator(devices.TranslatorConfig{
		MinKelvin: cfg.Tuya.MinKelvin,
		MaxKelvin: cfg.Tuya.MaxKelvin,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build translator: %w", err)
	}

	registry := devices.NewRegistry()
	if mappingStore != nil {
		mappings, err := mappingStore.LoadMappings(startupCtx)
		if err != nil {
			logger.Warn("Failed to restore device mappings", "component", "main", "error", err)
		} else if len(mappings) > 0 {
			registry.Restore(mappings)
			logger.Info("Restored device mappings", "component", "main", "count", len(mappings))
		}
	}

	service := devices.NewService(client, registry, translator, logger)

	// Start the device poller
	statePoller := poller.New(service, registry, mappingStore,
		time.Duration(cfg.Tuya.PollIntervalSeconds)*time.Second, logger)
	go statePoller.Start()

	// REST API
	router := api.NewRouter(api.RouterConfig{
		Service:    service,
		StateCache: statePoller,
		Manager:    manager,
		Linker:     linker,
		UserCode:   cfg.Tuya.UserCode,
		APIKey:     cfg.Security.APIKey,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			"component", "main",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "component", "main", "signal", sig.String())

		statePoller.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete", "component", "main")
	}

	return nil
}
