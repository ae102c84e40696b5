package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/handlers"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/services/altcache"
	"github.com/ternarybob/decktag/internal/services/analysis"
	"github.com/ternarybob/decktag/internal/services/events"
	jobsvc "github.com/ternarybob/decktag/internal/services/jobs"
	"github.com/ternarybob/decktag/internal/services/reader"
	"github.com/ternarybob/decktag/internal/services/render"
	"github.com/ternarybob/decktag/internal/services/retention"
	"github.com/ternarybob/decktag/internal/services/validator"
	"github.com/ternarybob/decktag/internal/services/vision"
	badgerstore "github.com/ternarybob/decktag/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	EventService     interfaces.EventService
	AltcacheService  interfaces.AltcacheService
	VisionService    interfaces.VisionService
	AnalysisService  interfaces.AnalysisService
	ValidatorService *validator.Service
	ReaderService    interfaces.DocumentReader
	RenderService    interfaces.Renderer
	JobService       interfaces.JobService
	RetentionService *retention.Service

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler
	WSHandler     *handlers.WebSocketHandler
}

// New wires the application together
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	manager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.StorageManager = manager

	app.EventService = events.NewService(logger)
	app.AltcacheService = altcache.NewService(manager.AlttextStorage(), logger)

	visionService, err := vision.NewVisionService(cfg, logger)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to initialize vision service: %w", err)
	}
	app.VisionService = visionService

	app.AnalysisService = analysis.NewService(visionService, app.AltcacheService, cfg, logger)
	app.ValidatorService = validator.NewService(cfg, logger)
	app.ReaderService = reader.NewService(logger)
	app.RenderService = render.NewService(logger)

	app.JobService = jobsvc.NewService(
		cfg,
		manager.JobStorage(),
		app.ReaderService,
		app.AnalysisService,
		app.ValidatorService,
		app.RenderService,
		app.AltcacheService,
		app.EventService,
		logger,
	)

	app.RetentionService = retention.NewService(cfg, manager, logger)
	if err := app.RetentionService.Start(); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to start retention service: %w", err)
	}

	app.JobHandler = handlers.NewJobHandler(app.JobService, cfg, logger)
	app.StatusHandler = handlers.NewStatusHandler(app.JobService, app.AltcacheService, logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger, &cfg.WebSocket)

	logger.Info().
		Str("vision_model", visionService.ModelName()).
		Int("alt_cache_entries", app.AltcacheService.Len()).
		Msg("Application initialization complete")

	return app, nil
}

// Close shuts down services in dependency order
func (a *App) Close() error {
	if a.RetentionService != nil {
		a.RetentionService.Stop()
	}

	if a.JobService != nil {
		a.JobService.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
