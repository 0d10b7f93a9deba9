// file: internal/repositories/collection.go
package repositories

import (
	"context"
	"fmt"

	"ecomission/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Templates      TemplateRepository
	Missions       MissionRepository
	Participations ParticipationRepository
	Files          FileRepository
	Points         PointRepository

	// Tx opens units of work spanning the repositories above
	Tx Transactor

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		Templates:      NewTemplateRepository(db, logger),
		Missions:       NewMissionRepository(db, logger),
		Participations: NewParticipationRepository(db, logger),
		Files:          NewFileRepository(db, logger),
		Points:         NewPointRepository(db, logger),
		Tx:             NewBaseRepository(db, logger),
		db:             db,
		logger:         logger,
	}

	logger.Info("Repository collection initialized successfully")
	return collection, nil
}

// Health checks database connectivity
func (c *Collection) Health(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	status := c.db.Health(ctx)
	if status.Status != database.StatusHealthy {
		return fmt.Errorf("database unhealthy: %s", status.Error)
	}
	return nil
}
