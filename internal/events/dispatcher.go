package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when an event cannot be enqueued.
var ErrQueueFull = errors.New("event queue full")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) handlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[eventType]...)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
	logger *zap.Logger
}

// NewInMemoryDispatcher creates a synchronous dispatcher, used in tests.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	deliver(ctx, d.logger, d.handlers(event.Type), event)
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.subscribe(eventType, handler)
}

// AsyncDispatcher queues events and delivers them from worker goroutines.
// Publish never blocks on handlers.
type AsyncDispatcher struct {
	registry
	logger  *zap.Logger
	queue   chan Event
	workers int
	dropped func(Event)
}

// NewAsyncDispatcher creates a dispatcher with a bounded queue.
func NewAsyncDispatcher(logger *zap.Logger, queueSize, workers int) *AsyncDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &AsyncDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
		queue:    make(chan Event, queueSize),
		workers:  workers,
	}
}

// OnDrop registers a callback for events dropped on a full queue.
func (d *AsyncDispatcher) OnDrop(fn func(Event)) {
	d.dropped = fn
}

// Subscribe registers a handler for the given event type.
func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.subscribe(eventType, handler)
}

// Publish enqueues the event. A full queue drops it.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("event queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		if d.dropped != nil {
			d.dropped(event)
		}
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is left.
func (d *AsyncDispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case event := <-d.queue:
					deliver(context.WithoutCancel(ctx), d.logger, d.handlers(event.Type), event)
				}
			}
		}()
	}
	wg.Wait()
	d.drain(context.WithoutCancel(ctx))
	return nil
}

func (d *AsyncDispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			deliver(ctx, d.logger, d.handlers(event.Type), event)
		default:
			return
		}
	}
}

func deliver(ctx context.Context, logger *zap.Logger, handlers []EventHandler, event Event) {
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
}
