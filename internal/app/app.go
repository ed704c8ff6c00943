package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/browser"
	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/handlers"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/services/pipeline"
	"github.com/menufeed/menufeed/internal/services/scheduler"
	"github.com/menufeed/menufeed/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Secrets *common.Secrets
	Logger  arbor.ILogger

	StorageManager interfaces.StorageManager

	PipelineService  *pipeline.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	MenuHandler    *handlers.MenuHandler
	RecordsHandler *handlers.RecordsHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, secrets *common.Secrets, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:  cfg,
		Secrets: secrets,
		Logger:  logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	browserController := browser.NewController(&cfg.Browser, logger)

	app.PipelineService = pipeline.NewService(cfg, secrets, browserController, storageManager, logger)
	app.SchedulerService = scheduler.NewService(&cfg.Scheduler, app.PipelineService, logger)

	app.APIHandler = handlers.NewAPIHandler()
	app.MenuHandler = handlers.NewMenuHandler(app.SchedulerService, logger)
	app.RecordsHandler = handlers.NewRecordsHandler(&cfg.Storage, storageManager, logger)

	if err := app.SchedulerService.Start(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("portal", secrets.PortalDomain).
		Str("browser_profile", cfg.Browser.Profile).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down application components in reverse initialization order.
func (a *App) Close() {
	a.SchedulerService.Stop()

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}

	a.Logger.Info().Msg("Application closed")
}
