package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishDeliversToExactAndPatternHandlers(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())
	ctx := context.Background()

	var got []string
	require.NoError(t, bus.Subscribe(MissionClosed, NewEventHandlerFunc("exact", func(ctx context.Context, e Event) error {
		got = append(got, "exact:"+e.GetEventType())
		return nil
	})))
	require.NoError(t, bus.SubscribePattern("mission.*", NewEventHandlerFunc("pattern", func(ctx context.Context, e Event) error {
		got = append(got, "pattern:"+e.GetEventType())
		return nil
	})))

	event := NewMissionEvent(MissionClosed, 4, nil, "EVENT", "CLOSED", time.Now())
	require.NoError(t, bus.Publish(ctx, event))
	require.NoError(t, bus.Publish(ctx, NewParticipationEvent(ParticipationSubmitted, 1, 4, 9, "PENDING")))

	assert.ElementsMatch(t, []string{"exact:mission.closed", "pattern:mission.closed"}, got)

	stats := bus.Stats()
	assert.Equal(t, int64(2), stats.EventsPublished)
	assert.Equal(t, 2, stats.HandlersCount)
}

func TestPublishReturnsHandlerErrorsAndRecoversPanics(t *testing.T) {
	bus := NewEventBus(nil, zap.NewNop())

	require.NoError(t, bus.Subscribe(MissionOpened, NewEventHandlerFunc("fails", func(ctx context.Context, e Event) error {
		return errors.New("cache down")
	})))
	require.NoError(t, bus.Subscribe(MissionOpened, NewEventHandlerFunc("panics", func(ctx context.Context, e Event) error {
		panic("boom")
	})))

	err := bus.Publish(context.Background(), NewMissionEvent(MissionOpened, 1, nil, "SCHEDULED", "OPEN", time.Now()))
	require.Error(t, err)
	assert.ErrorContains(t, err, "cache down")
	assert.ErrorContains(t, err, "panicked")
	assert.Equal(t, int64(1), bus.Stats().EventsFailed)
}

func TestPublishAsyncIsProcessedByWorkers(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 4, WorkerCount: 1, HandlerTimeout: time.Second}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, bus.Subscribe(ParticipationApproved, NewEventHandlerFunc("h", func(ctx context.Context, e Event) error {
		defer wg.Done()
		if pe, ok := e.(*ParticipationEvent); assert.True(t, ok) {
			assert.Equal(t, int64(300), pe.PointsCredited)
		}
		return nil
	})))

	require.NoError(t, bus.Start(ctx))

	event := NewParticipationEvent(ParticipationApproved, 1, 2, 3, "APPROVED")
	event.PointsCredited = 300
	require.NoError(t, bus.PublishAsync(ctx, event))
	// the request context ending must not cancel queued delivery
	cancel()

	wg.Wait()

	stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Error(t, bus.Health())
}

func TestPublishAsyncRejectsWhenQueueFull(t *testing.T) {
	bus := NewEventBus(&EventBusConfig{BufferSize: 1, WorkerCount: 0, HandlerTimeout: time.Second}, nil)
	ctx := context.Background()

	require.NoError(t, bus.PublishAsync(ctx, NewMissionEvent(MissionCreated, 1, nil, "EVENT", "OPEN", time.Now())))
	assert.Error(t, bus.PublishAsync(ctx, NewMissionEvent(MissionCreated, 2, nil, "EVENT", "OPEN", time.Now())))
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("mission.opened", "mission.*"))
	assert.True(t, matchesPattern("participation.approved", "*"))
	assert.False(t, matchesPattern("participation.approved", "mission.*"))
	assert.True(t, matchesPattern("mission.closed", "mission.closed"))
}

func TestGenerateEventIDIsUnique(t *testing.T) {
	assert.NotEqual(t, GenerateEventID(), GenerateEventID())
}
