package container

import (
	"context"
	"fmt"

	"gouq/adapters/db/postgres/migrations"
	"gouq/adapters/excel"
	"gouq/adapters/memory"
	"gouq/adapters/postgres"
	"gouq/adapters/rng"
	"gouq/app"
	"gouq/internal"
	"gouq/internal/api"
	"gouq/internal/config"
	"gouq/internal/errors"
	"gouq/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Adapters
	RunRepo  ports.RunRepository
	Exporter ports.SampleExporter
	RNG      ports.RNGPort

	// Application
	Service *app.InversionService
	SSEHub  *api.SSEHub
}

// New creates a container. Storage is not wired until InitStorage.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		RNG:    rng.NewStreams(),
	}
	if cfg.Paths.ExportDir != "" {
		c.Exporter = excel.NewSampleExporter(cfg.Paths.ExportDir, logger)
	}
	return c, nil
}

// InitStorage connects to PostgreSQL and applies pending migrations when
// DATABASE_URL is set, otherwise it falls back to the in-memory repository.
func (c *Container) InitStorage(ctx context.Context) error {
	if !c.Config.Database.Enabled() {
		c.Logger.Warn("DATABASE_URL not set, runs are kept in memory")
		c.RunRepo = memory.NewRunRepository()
		return nil
	}

	db, err := Connect(ctx, c.Config.Database)
	if err != nil {
		return err
	}
	c.DB = db

	applied, err := migrations.NewMigrator(db.DB).Up(ctx)
	if err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	for _, version := range applied {
		c.Logger.Info("applied migration %s", version)
	}

	c.RunRepo = postgres.NewRunRepository(db)
	return nil
}

// Connect opens and pings a PostgreSQL pool sized from cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	return db, nil
}

// InitService builds the inversion service. withEvents also starts the SSE
// hub and routes run progress through it.
func (c *Container) InitService(withEvents bool) error {
	if c.RunRepo == nil {
		return fmt.Errorf("storage not initialized")
	}
	c.Service = app.NewInversionService(c.RunRepo, c.Exporter, c.RNG, c.Config.Sampling, c.Logger)
	if withEvents {
		c.SSEHub = api.NewSSEHub(c.Logger)
		c.Service.WithEvents(api.NewSSEEventBroadcaster(c.SSEHub))
	}
	return nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
