package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// EventBus fans claim lifecycle events out to in-process subscribers.
// Publish runs handlers on their own goroutines; Wait drains them on shutdown.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
	inflight sync.WaitGroup
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	n := len(eb.handlers[eventType])
	eb.mu.Unlock()

	eb.logger.Info("event handler registered", "event_type", eventType, "total_handlers", n)
}

func (eb *EventBus) HandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// subscribers copies the handler list so a Subscribe during dispatch is safe.
func (eb *EventBus) subscribers(event Event, mode string) []Handler {
	eb.mu.RLock()
	hs := append([]Handler(nil), eb.handlers[event.EventType()]...)
	eb.mu.RUnlock()

	if len(hs) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}
	eb.logger.Info("publishing event",
		"mode", mode,
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(hs))
	return hs
}

func (eb *EventBus) failed(event Event, err error) {
	eb.logger.Error("event handler failed",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"error", err)
}

// Publish never reports handler errors. Handlers get a context that survives
// the cancellation of the request that published the event.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	hs := eb.subscribers(event, "async")
	if hs == nil {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	eb.inflight.Add(len(hs))
	for _, h := range hs {
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := h(detached, event); err != nil {
				eb.failed(event, err)
			}
		}(h)
	}
	return nil
}

// PublishSync stops at the first failing handler and returns its error.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range eb.subscribers(event, "sync") {
		if err := h(ctx, event); err != nil {
			eb.failed(event, err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (eb *EventBus) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		eb.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
