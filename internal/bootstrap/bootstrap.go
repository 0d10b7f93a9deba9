// Package bootstrap assembles the application from configuration
package bootstrap

import (
	"context"
	"fmt"

	"ecomission/internal/config"
	"ecomission/internal/database"
	"ecomission/internal/repositories"
	"ecomission/internal/scheduler"
	"ecomission/internal/services"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App holds the long-lived components shared by the binaries
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *database.Manager
	Services  *services.ServiceCollection
	Lifecycle *scheduler.Lifecycle
}

// NewLogger builds the structured logger from the logging section
func NewLogger(cfg config.LoggingConfig, environment string) (*zap.Logger, error) {
	var zc zap.Config
	if environment == "production" || environment == "staging" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Format {
	case "json", "console":
		zc.Encoding = cfg.Format
	case "":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.With(zap.String("env", environment)), nil
}

// Open connects to the database, optionally migrates it, and wires the services
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*App, error) {
	db, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	repos, err := repositories.NewCollection(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	sc, err := services.NewServiceCollection(repos, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := sc.Start(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start services: %w", err)
	}

	lifecycle := scheduler.NewLifecycle(repos, sc.Icons, scheduler.Options{
		Location:         cfg.Scheduler.Location(),
		FailureThreshold: cfg.Scheduler.FailureThreshold,
		Events:           sc.EventBus,
		Logger:           logger.Named("lifecycle"),
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Services:  sc,
		Lifecycle: lifecycle,
	}, nil
}

// Close stops the services and releases the database pool
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.Services.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := a.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
