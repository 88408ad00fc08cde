package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/strand/internal/common"
	"github.com/ternarybob/strand/internal/handlers"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/notify"
	"github.com/ternarybob/strand/internal/omics"
	"github.com/ternarybob/strand/internal/orchestrator"
	"github.com/ternarybob/strand/internal/provisioner"
	"github.com/ternarybob/strand/internal/registry"
	"github.com/ternarybob/strand/internal/services/events"
	badgerstore "github.com/ternarybob/strand/internal/storage/badger"
	"github.com/ternarybob/strand/internal/watcher"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB              *badgerstore.BadgerDB
	RegistryStorage interfaces.RegistryStorage
	RunStorage      interfaces.RunStorage
	KVStorage       interfaces.KeyValueStorage

	// Services
	EventService    interfaces.EventService
	OmicsClient     *omics.Client
	RegistryService *registry.Service
	Notifier        interfaces.Notifier
	Runner          *orchestrator.Runner
	Watcher         *watcher.Watcher

	// HTTP handlers
	RunHandler    *handlers.RunHandler
	StatusHandler *handlers.StatusHandler
}

// New wires the application from configuration. Storage opens eagerly; the
// watcher does not start until Start is called.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	db, err := badgerstore.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.DB = db
	a.RegistryStorage = badgerstore.NewRegistryStorage(db, logger)
	a.RunStorage = badgerstore.NewRunStorage(db, logger)
	a.KVStorage = badgerstore.NewKVStorage(db, logger)

	a.EventService = events.NewService(logger)

	a.OmicsClient = omics.NewClient(
		cfg.Omics.BaseURL,
		cfg.Omics.APIToken,
		omics.WithLogger(logger),
		omics.WithRateLimit(cfg.Omics.RateLimit),
		omics.WithHTTPClient(&http.Client{Timeout: cfg.Omics.RequestTimeout}),
	)

	a.RegistryService = registry.NewService(a.RegistryStorage, logger)
	a.Notifier = notify.NewNotifier(a.EventService, cfg.Notify.WebhookURL, cfg.Notify.RequestTimeout, logger)

	resolver := orchestrator.NewResolver(a.RegistryService, logger)
	launcher := orchestrator.NewLauncher(
		a.OmicsClient,
		&orchestrator.RetryConfig{
			MaxAttempts: cfg.Launcher.RetryMaxAttempts,
			BaseDelay:   cfg.Launcher.RetryBaseDelay,
			Jitter:      cfg.Launcher.RetryJitter,
		},
		cfg.Launcher.InterLaunchInterval,
		logger,
	)
	poller := orchestrator.NewPoller(a.OmicsClient, logger)

	a.Runner = orchestrator.NewRunner(
		resolver,
		launcher,
		poller,
		a.RunStorage,
		a.Notifier,
		a.EventService,
		cfg.Poller.Interval,
		cfg.Poller.MaxCycles,
		logger,
	)

	if cfg.Watcher.Enabled {
		a.Watcher = watcher.NewWatcher(a.Runner, a.KVStorage, a.EventService, cfg.Watcher.Dir, cfg.Watcher.Schedule, logger)
	}

	a.RunHandler = handlers.NewRunHandler(a.Runner, a.RunStorage, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.RegistryStorage, a.RunStorage, logger)

	return a, nil
}

// Provision reconciles the workflow catalog against the service and registry.
// Skipped when no catalog file is configured or present.
func (a *App) Provision(ctx context.Context) error {
	path := a.Config.Registry.CatalogFile
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		a.Logger.Warn().Str("path", path).Msg("No workflow catalog found, skipping provisioning")
		return nil
	}

	catalog, err := provisioner.LoadCatalog(path)
	if err != nil {
		return err
	}

	p := provisioner.NewProvisioner(
		a.OmicsClient,
		a.RegistryStorage,
		a.Config.Artifacts.BaseURL,
		a.Config.Registry.ExecutionRole,
		a.Config.Registry.ResourceGroup,
		a.Logger,
	)
	return p.Provision(ctx, catalog)
}

// Start brings up background components
func (a *App) Start(ctx context.Context) error {
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start manifest watcher: %w", err)
		}
	}

	// Periodic value log GC; Badger never garbage collects on its own
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.DB.RunGC(); err != nil {
					a.Logger.Warn().Err(err).Msg("Badger GC pass failed")
				}
			}
		}
	}()

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
