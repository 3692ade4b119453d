package container

import (
	"context"
	"fmt"

	"datalens/adapters/api"
	"datalens/adapters/badger"
	"datalens/adapters/memory"
	"datalens/adapters/postgres"
	"datalens/internal"
	"datalens/internal/config"
	"datalens/internal/errors"
	"datalens/internal/export"
	"datalens/internal/migration"
	"datalens/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB is set only for the postgres state backend
	DB *sqlx.DB

	Gateway ports.DatasetGateway
	Store   ports.StateStore
	Exports *export.Store
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Container{Config: cfg, Logger: logger}, nil
}

// Init opens the state store, the export directory and the backend client
func (c *Container) Init(ctx context.Context) error {
	if err := c.initStateStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	exports, err := export.NewStore(c.Config.UI.ExportDir)
	if err != nil {
		return fmt.Errorf("failed to initialize export store: %w", err)
	}
	c.Exports = exports

	c.Gateway = api.NewClient(api.FromConfig(c.Config.Backend), c.Logger)
	c.Logger.With("Container").Debug("initialized (state=%s, api=%s)", c.Config.State.Backend, c.Config.Backend.BaseURL)
	return nil
}

// initStateStore opens the configured notes and tour store
func (c *Container) initStateStore(ctx context.Context) error {
	cfg := c.Config.State
	switch cfg.Backend {
	case "memory":
		c.Store = memory.NewStateStore()
	case "badger":
		bcfg := badger.DefaultConfig(cfg.BadgerPath)
		bcfg.Logger = c.Logger
		store, err := badger.NewStateStore(bcfg)
		if err != nil {
			return errors.DatabaseError("failed to open badger state store", err)
		}
		c.Store = store
	case "postgres":
		store, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.DatabaseError("failed to connect to state database", err)
		}
		if err := migration.NewRunner().Run(ctx, store.DB()); err != nil {
			store.Close()
			return errors.Wrap(err, "database migration failed")
		}
		c.DB = store.DB()
		c.Store = store
	default:
		return errors.ConfigInvalid("unknown state backend: " + cfg.Backend)
	}
	return nil
}

// Shutdown releases the state store
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
