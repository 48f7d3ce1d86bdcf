// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "sensaur-hub/docs"
	"sensaur-hub/internal/config"
	"sensaur-hub/internal/database"
	"sensaur-hub/internal/handler"
	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/repository"
	"sensaur-hub/internal/routes"
	"sensaur-hub/internal/service"
	"sensaur-hub/internal/utils"
	"sensaur-hub/internal/wire"
)

const configEnv = "SENSAUR_HUB_CONFIG"

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Hub runtime
	hub         *hub.Hub
	codec       wire.Codec
	connections *handler.ConnectionManager
	eventBus    *handler.EventBus

	// Services
	hubService       *service.HubService
	discoveryService *service.DiscoveryService

	// Repositories
	readingRepo repository.ReadingRepository

	ctx    context.Context
	cancel context.CancelFunc
}

// @title Sensaur Hub API
// @version 1.0.0
// @description Sensor hub: device state, actuator commands and stored readings

// @contact.name Sensaur Hub

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", os.Getenv(configEnv), "path to the configuration file")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "sensaur-hub")
	serviceLogger.LogServiceStart(cfg.App.Version,
		zap.String("environment", cfg.App.Environment),
		zap.String("hub_id", cfg.Hub.ID),
		zap.String("owner_id", cfg.Hub.OwnerID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()

	if err := app.initializeHub(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize hub: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeServer()

	return app, nil
}

// initializeDatabase connects to the reading store and runs migrations.
// Nothing is opened when persistence is disabled.
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, readings will not be stored")
		return nil
	}

	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.database = db
	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database == nil {
		return
	}
	app.readingRepo = repository.NewReadingRepository(app.database, app.logger)
	app.logger.Info("Repositories initialized successfully")
}

// initializeHub creates the hub state, the wire codec and the event bus
func (app *Application) initializeHub() error {
	hubCfg := app.config.Hub

	host := hubCfg.Host
	if host == "" {
		if name, err := os.Hostname(); err == nil {
			host = name
		}
	}

	app.hub = hub.New(hub.Options{
		ID:              hubCfg.ID,
		OwnerID:         hubCfg.OwnerID,
		Host:            host,
		PollingInterval: hubCfg.PollingInterval,
		FirmwareURL:     hubCfg.FirmwareURL,
	})

	codec, err := wire.ForFormat(hubCfg.WireFormat)
	if err != nil {
		return err
	}
	app.codec = codec

	app.connections = handler.NewConnectionManager()
	app.eventBus = handler.NewEventBus(app.connections, codec, app.logger)

	app.logger.Info("Hub initialized",
		zap.String("hub_id", hubCfg.ID),
		zap.String("host", host),
		zap.String("wire_format", codec.Name()),
	)
	return nil
}

// initializeServices creates service instances and registers device
// connections
func (app *Application) initializeServices() error {
	app.hubService = service.NewHubService(
		app.hub,
		app.codec,
		app.eventBus,
		app.readingRepo,
		app.config.Hub.RetryDelay,
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(&app.config.Discovery, app.logger)

	count, err := service.SetupConnections(app.ctx, app.hubService, app.discoveryService, app.config, app.logger)
	if err != nil {
		return err
	}

	app.logger.Info("Services initialized successfully", zap.Int("connections", count))
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.hubService,
		app.discoveryService,
		app.readingRepo,
		app.connections,
		app.eventBus,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts the event bus, the hub runtime and the
// reading cleanup
func (app *Application) startBackgroundServices() error {
	go app.eventBus.Start()

	if err := app.hubService.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start hub service: %w", err)
	}

	if app.readingRepo != nil && app.config.Database.RetentionPeriod > 0 {
		go app.startCleanupService()
	}

	app.logger.Info("Background services started")
	return nil
}

// startCleanupService deletes readings older than the retention period
func (app *Application) startCleanupService() {
	interval := app.config.Database.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started",
		zap.Duration("interval", interval),
		zap.Duration("retention", app.config.Database.RetentionPeriod),
	)

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(app.ctx, 10*time.Minute)
		cutoff := time.Now().Add(-app.config.Database.RetentionPeriod)
		deleted, err := app.readingRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			app.logger.Error("Failed to cleanup old readings", zap.Error(err))
		} else if deleted > 0 {
			app.logger.Info("Cleaned up old readings", zap.Int64("deleted", deleted))
		}
		cancel()
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "sensaur-hub")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.hubService.Stop()
	app.cancel()
	app.eventBus.Stop()
	app.connections.Stop()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server and background services until a shutdown
// signal arrives
func (app *Application) Start() error {
	if err := app.startBackgroundServices(); err != nil {
		return err
	}

	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()

	return nil
}
