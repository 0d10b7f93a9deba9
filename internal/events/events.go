package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
}

// GetEventID returns the event ID
func (e *BaseEvent) GetEventID() string {
	return e.EventID
}

// GetEventType returns the event type
func (e *BaseEvent) GetEventType() string {
	return e.EventType
}

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

// GetUserID returns the user ID associated with the event
func (e *BaseEvent) GetUserID() *int64 {
	return e.UserID
}

func newBaseEvent(eventType string, userID *int64) BaseEvent {
	return BaseEvent{
		EventID:   GenerateEventID(),
		EventType: eventType,
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// ===============================
// EVENT BUS INTERFACE
// ===============================

// EventBus defines the event publishing and subscription interface
type EventBus interface {
	// Publishing
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error

	// Subscription
	Subscribe(eventType string, handler EventHandler) error
	SubscribePattern(pattern string, handler EventHandler) error

	// Management
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
	Stats() *EventBusStats
}

// EventHandler represents an event handler function
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc is a function type that implements EventHandler
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler
func (f EventHandlerFunc) GetHandlerID() string {
	return f.ID
}

// NewEventHandlerFunc creates an EventHandler from a function
func NewEventHandlerFunc(id string, fn func(ctx context.Context, event Event) error) EventHandler {
	return EventHandlerFunc{ID: id, Func: fn}
}

// EventBusStats represents event bus statistics
type EventBusStats struct {
	EventsPublished int64         `json:"events_published"`
	EventsProcessed int64         `json:"events_processed"`
	EventsFailed    int64         `json:"events_failed"`
	HandlersCount   int           `json:"handlers_count"`
	QueueDepth      int           `json:"queue_depth"`
	Uptime          time.Duration `json:"uptime"`
}

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

// EventBusConfig holds configuration for the event bus
type EventBusConfig struct {
	BufferSize     int           `json:"buffer_size" yaml:"buffer_size"`
	WorkerCount    int           `json:"worker_count" yaml:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout" yaml:"handler_timeout"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:     1000,
		WorkerCount:    4,
		HandlerTimeout: 30 * time.Second,
	}
}

// inMemoryEventBus implements EventBus using a buffered channel and a worker pool
type inMemoryEventBus struct {
	mu              sync.RWMutex
	handlers        map[string][]EventHandler
	patternHandlers map[string][]EventHandler
	eventQueue      chan eventMessage
	config          *EventBusConfig
	logger          *zap.Logger
	startTime       time.Time
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup

	published atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

type eventMessage struct {
	ctx   context.Context
	event Event
}

// NewEventBus creates a new in-memory event bus
func NewEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultEventBusConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &inMemoryEventBus{
		handlers:        make(map[string][]EventHandler),
		patternHandlers: make(map[string][]EventHandler),
		eventQueue:      make(chan eventMessage, config.BufferSize),
		config:          config,
		logger:          logger,
		startTime:       time.Now(),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Publish delivers an event to its handlers before returning
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.published.Add(1)
	if err := b.processEvent(ctx, event); err != nil {
		b.failed.Add(1)
		b.logger.Error("Failed to process event",
			zap.String("event_id", event.GetEventID()),
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
		return err
	}

	b.processed.Add(1)
	return nil
}

// PublishAsync queues an event for the worker pool
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	// Handlers outlive the request that published the event
	msg := eventMessage{ctx: context.WithoutCancel(ctx), event: event}

	select {
	case b.eventQueue <- msg:
		b.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event queue is full")
	}
}

// Subscribe subscribes to events of a specific type
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	b.logger.Info("Handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// SubscribePattern subscribes to events matching a trailing-wildcard pattern
func (b *inMemoryEventBus) SubscribePattern(pattern string, handler EventHandler) error {
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.patternHandlers[pattern] = append(b.patternHandlers[pattern], handler)

	b.logger.Info("Pattern handler subscribed",
		zap.String("pattern", pattern),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// Start starts the event bus workers
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.logger.Info("Starting event bus", zap.Int("worker_count", b.config.WorkerCount))

	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return nil
}

// Stop stops the workers, waiting until ctx expires
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("Stopping event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped successfully")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timeout")
		return ctx.Err()
	}
}

// Health checks the health of the event bus
func (b *inMemoryEventBus) Health() error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is stopped")
	default:
	}

	queueDepth := len(b.eventQueue)
	if capacity := cap(b.eventQueue); capacity > 0 && queueDepth > capacity*80/100 {
		return fmt.Errorf("event queue is %d%% full", queueDepth*100/capacity)
	}
	return nil
}

// Stats returns event bus statistics
func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.mu.RLock()
	handlers := 0
	for _, hs := range b.handlers {
		handlers += len(hs)
	}
	for _, hs := range b.patternHandlers {
		handlers += len(hs)
	}
	b.mu.RUnlock()

	return &EventBusStats{
		EventsPublished: b.published.Load(),
		EventsProcessed: b.processed.Load(),
		EventsFailed:    b.failed.Load(),
		HandlersCount:   handlers,
		QueueDepth:      len(b.eventQueue),
		Uptime:          time.Since(b.startTime),
	}
}

func (b *inMemoryEventBus) worker(workerID int) {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.eventQueue:
			if err := b.processEvent(msg.ctx, msg.event); err != nil {
				b.logger.Error("Failed to process event",
					zap.Int("worker_id", workerID),
					zap.String("event_id", msg.event.GetEventID()),
					zap.String("event_type", msg.event.GetEventType()),
					zap.Error(err),
				)
				b.failed.Add(1)
			} else {
				b.processed.Add(1)
			}

		case <-b.ctx.Done():
			return
		}
	}
}

func (b *inMemoryEventBus) handlersFor(eventType string) []EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := append([]EventHandler(nil), b.handlers[eventType]...)
	for pattern, handlers := range b.patternHandlers {
		if matchesPattern(eventType, pattern) {
			all = append(all, handlers...)
		}
	}
	return all
}

func (b *inMemoryEventBus) processEvent(ctx context.Context, event Event) error {
	handlers := b.handlersFor(event.GetEventType())
	if len(handlers) == 0 {
		b.logger.Debug("No handlers found for event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := b.executeHandler(ctx, handler, event); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", handler.GetHandlerID(), err))
		}
	}
	return errors.Join(errs...)
}

// executeHandler runs one handler with a timeout, converting panics to errors
func (b *inMemoryEventBus) executeHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", event.GetEventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	return handler.Handle(handlerCtx, event)
}

// matchesPattern checks if an event type matches a pattern
func matchesPattern(eventType, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(eventType) >= len(prefix) && eventType[:len(prefix)] == prefix
	}

	return eventType == pattern
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}
