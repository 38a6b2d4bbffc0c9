package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"linkbias/adapters/postgres"
	"linkbias/adapters/rng"
	"linkbias/app"
	"linkbias/internal"
	"linkbias/internal/config"
	"linkbias/internal/migration"
	"linkbias/internal/testkit"
	"linkbias/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB  *sqlx.DB
	RNG ports.RNGPort

	// Repositories (data access layer); in memory until InitWithDatabase
	RunRepo ports.RunRepository

	// Services
	Simulation *app.SimulationService
}

// New creates a container that keeps runs in memory for the life of the
// process. InitWithDatabase switches it to persistent storage.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		RNG:     rng.NewSeededAdapter(),
		RunRepo: testkit.NewInMemoryRunRepository(),
	}
	c.initServices()
	return c, nil
}

// InitWithDatabase connects to the configured database, applies migrations
// and rewires the services onto the persistent repository
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if !c.Config.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := postgres.Open(ctx, c.Config.Database.URL, postgres.PoolConfig{
		MaxOpenConns: c.Config.Database.MaxOpenConns,
		MaxIdleConns: c.Config.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.DB = db
	c.RunRepo = postgres.NewRunRepository(db)
	c.initServices()

	c.Logger.Info("connected to %s database", db.DriverName())
	return nil
}

func (c *Container) initServices() {
	c.Simulation = app.NewSimulationService(c.RunRepo, c.RNG, c.Logger, c.Config.Simulation.Workers,
		app.WithPopulationCache(c.Config.Simulation.PopulationCache),
		app.WithMaxPopulation(c.Config.Simulation.MaxPopulation))
}

// Close releases the database connection, if any
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
