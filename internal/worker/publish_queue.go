package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/events"
)

// ErrQueueFull is returned when an event is dropped because the broker is not keeping up.
var ErrQueueFull = errors.New("event publish queue full")

const defaultPublishTimeout = 10 * time.Second

// PublishQueue decouples callers from the broker. Publish only enqueues; the
// notification worker drains the queue in the background.
type PublishQueue struct {
	events    chan events.Event
	publisher events.Publisher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPublishQueue buffers up to size events in front of publisher.
func NewPublishQueue(publisher events.Publisher, size int, logger *zap.Logger) *PublishQueue {
	if size <= 0 {
		size = 1
	}
	return &PublishQueue{
		events:    make(chan events.Event, size),
		publisher: publisher,
		timeout:   defaultPublishTimeout,
		logger:    logger,
	}
}

// Publish enqueues event without blocking. A full queue drops the event.
func (q *PublishQueue) Publish(_ context.Context, event events.Event) error {
	select {
	case q.events <- event:
		return nil
	default:
		q.logger.Warn("dropping request event, publish queue full",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return ErrQueueFull
	}
}

// Close is a no-op; the worker closes the underlying publisher on shutdown.
func (q *PublishQueue) Close() error {
	return nil
}

// run forwards queued events until ctx is cancelled, then closes the publisher.
// Events still queued at shutdown are dropped.
func (q *PublishQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if pending := len(q.events); pending > 0 {
				q.logger.Warn("dropping queued request events on shutdown", zap.Int("pending", pending))
			}
			if err := q.publisher.Close(); err != nil {
				q.logger.Warn("close event publisher", zap.Error(err))
				return
			}
			q.logger.Info("event publisher closed")
			return
		case event := <-q.events:
			q.forward(ctx, event)
		}
	}
}

func (q *PublishQueue) forward(ctx context.Context, event events.Event) {
	publishCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	if err := q.publisher.Publish(publishCtx, event); err != nil {
		q.logger.Warn("publish request event failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
