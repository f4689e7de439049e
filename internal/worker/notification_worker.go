package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/service"
)

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 5 * time.Second
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// EventRelay decouples request handling from the broker: Publish only
// enqueues, and a background goroutine forwards to the wrapped publisher.
// Events are dropped with a warning when the queue is full.
type EventRelay struct {
	next    events.Publisher
	logger  *zap.Logger
	queue   chan events.Event
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
}

// NewEventRelay wraps next. queueSize <= 0 uses a default.
func NewEventRelay(next events.Publisher, queueSize int, logger *zap.Logger) *EventRelay {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRelay{
		next:    next,
		logger:  logger,
		queue:   make(chan events.Event, queueSize),
		timeout: defaultPublishTimeout,
	}
}

// Start launches the forwarding loop.
func (r *EventRelay) Start() {
	r.wg.Add(1)
	go r.run()
}

// Publish enqueues the event without blocking. Events published after Close
// are dropped.
func (r *EventRelay) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Warn("event relay closed; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
		return nil
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("event relay queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

// Close drains pending events, then closes the wrapped publisher.
func (r *EventRelay) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()

		r.wg.Wait()
		r.next.Close()
	})
}

func (r *EventRelay) run() {
	defer r.wg.Done()
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.next.Publish(ctx, event); err != nil {
			r.logger.Warn("event publish failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
		cancel()
	}
}
