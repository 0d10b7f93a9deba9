package services

import (
	"context"
	"fmt"

	"ecomission/internal/cache"
	"ecomission/internal/events"

	"go.uber.org/zap"
)

// NewMissionCacheInvalidator drops cached mission lists whenever a mission
// is created or changes status
func NewMissionCacheInvalidator(c cache.Cache, logger *zap.Logger) events.EventHandler {
	return events.NewEventHandlerFunc("mission-list-cache-invalidator", func(ctx context.Context, event events.Event) error {
		if err := c.DeletePattern(ctx, "missions:*"); err != nil {
			return fmt.Errorf("failed to drop mission list cache: %w", err)
		}
		logger.Debug("Mission list cache dropped",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	})
}
