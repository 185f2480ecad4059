package worker

import (
	"context"

	"github.com/spec-kit/opsboard/internal/service"
)

// StartNotificationWorker subscribes the notification handlers and, when a queue is
// given, drains it into the broker until ctx is cancelled. The returned channel
// closes once the broker publisher has been shut down. queue may be nil.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, queue *PublishQueue) <-chan struct{} {
	done := make(chan struct{})
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if queue == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		queue.run(ctx)
	}()
	return done
}
