package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecomission/internal/events"
	"ecomission/internal/models"
	"ecomission/internal/repositories"
	"ecomission/internal/storage"

	"go.uber.org/zap"
)

// Options carries the collaborators shared by every mission service
type Options struct {
	Clock    Clock
	Location *time.Location
	Events   events.EventBus
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// today is the current calendar day in the configured zone
func (o Options) today() time.Time {
	return models.Today(o.Clock(), o.Location)
}

// publish queues an event after commit; delivery failures never fail the caller
func (o Options) publish(ctx context.Context, event events.Event) {
	if o.Events == nil {
		return
	}
	if err := o.Events.PublishAsync(ctx, event); err != nil {
		o.Logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}
}

func requireRole(actor models.Actor, role models.Role) error {
	if !actor.Is(role) {
		return NewForbiddenError(fmt.Sprintf("%s role required", role))
	}
	return nil
}

// storageFailure maps an artifact storage error to the service taxonomy
func storageFailure(message string, err error) *ServiceError {
	if errors.Is(err, storage.ErrInvalidArtifact) {
		return NewValidationError(err.Error(), err)
	}
	return NewStorageError(message, err)
}

// repoFailure maps repository errors, turning ErrNotFound into NOT_FOUND for entity
func repoFailure(entity string, id interface{}, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return EntityNotFoundError(entity, id)
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError(fmt.Sprintf("failed to load %s", entity), err)
}
