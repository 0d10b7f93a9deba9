// file: internal/services/service_collection.go
package services

import (
	"context"
	"fmt"
	"time"

	"ecomission/internal/cache"
	"ecomission/internal/config"
	"ecomission/internal/events"
	"ecomission/internal/repositories"
	"ecomission/internal/storage"

	"go.uber.org/zap"
)

// ServiceCollection holds the mission services and their shared infrastructure
type ServiceCollection struct {
	// Core Services
	Submissions SubmissionService
	Approvals   ApprovalService
	Missions    MissionService
	Management  ManagementService

	// Repository Collection
	Repositories *repositories.Collection

	// Infrastructure Components
	Cache    cache.Cache
	EventBus events.EventBus
	Storage  ArtifactStorage
	Icons    IconResolver
	Options  Options
	Logger   *zap.Logger
	Config   *config.Config
}

// DependencyStatus is the health of one backing dependency
type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // healthy, unhealthy
	Error  string `json:"error,omitempty"`
}

// NewServiceCollection wires the services over the repositories
func NewServiceCollection(repos *repositories.Collection, cfg *config.Config, logger *zap.Logger) (*ServiceCollection, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository collection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c, err := cache.NewCache(&cache.Config{
		Provider:        cfg.Cache.Provider,
		RedisURL:        cfg.Cache.RedisURL,
		TTL:             cfg.Cache.TTL,
		MaxKeys:         cfg.Cache.MaxKeys,
		CleanupInterval: time.Minute,
		PoolSize:        10,
	}, logger.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	icons, err := LoadIconResolver(cfg.Icons.MapFile)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	var artifacts ArtifactStorage
	if cfg.Cloudinary.Configured() {
		cld, err := storage.NewCloudinaryStorage(cfg.Cloudinary, c, logger.Named("storage"))
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		artifacts = cld
	} else {
		logger.Warn("Cloudinary credentials missing, artifact uploads will fail")
		artifacts = storage.NewUnavailable(cfg.Cloudinary)
	}

	bus := events.NewEventBus(events.DefaultEventBusConfig(), logger.Named("events"))
	if err := bus.SubscribePattern("mission.*", NewMissionCacheInvalidator(c, logger)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to subscribe cache invalidator: %w", err)
	}

	opts := Options{
		Clock:    time.Now,
		Location: cfg.Scheduler.Location(),
		Events:   bus,
		Logger:   logger,
	}

	collection := &ServiceCollection{
		Submissions: NewSubmissionService(repos.Tx, repos.Missions, repos.Participations, repos.Files, artifacts, opts),
		Approvals:   NewApprovalService(repos.Tx, repos.Participations, repos.Points, opts),
		Missions: NewMissionService(repos.Missions, repos.Participations, repos.Files, artifacts,
			cache.NewLoader(c, cfg.Cache.TTL, logger), opts),
		Management: NewManagementService(repos.Tx, repos.Templates, repos.Missions, repos.Participations,
			repos.Files, artifacts, icons, opts),
		Repositories: repos,
		Cache:        c,
		EventBus:     bus,
		Storage:      artifacts,
		Icons:        icons,
		Options:      opts,
		Logger:       logger,
		Config:       cfg,
	}

	logger.Info("Service collection initialized successfully",
		zap.String("cache_provider", cfg.Cache.Provider),
		zap.Bool("cloudinary", cfg.Cloudinary.Configured()),
	)
	return collection, nil
}

// Start starts background components
func (sc *ServiceCollection) Start(ctx context.Context) error {
	return sc.EventBus.Start(ctx)
}

// Shutdown stops background components and releases the cache
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := sc.EventBus.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := sc.Cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// HealthCheck reports the status of every backing dependency
func (sc *ServiceCollection) HealthCheck(ctx context.Context) []DependencyStatus {
	checks := []struct {
		name  string
		check func() error
	}{
		{"database", func() error { return sc.Repositories.Health(ctx) }},
		{"cache", func() error { return sc.Cache.Health(ctx) }},
		{"events", sc.EventBus.Health},
	}

	statuses := make([]DependencyStatus, 0, len(checks))
	for _, c := range checks {
		status := DependencyStatus{Name: c.name, Status: "healthy"}
		if err := c.check(); err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}
	return statuses
}
