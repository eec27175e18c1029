package worker

import (
	"context"

	"github.com/spec-kit/service-desk/internal/service"
)

// QueueRunner delivers queued events until its context ends.
type QueueRunner interface {
	Run(ctx context.Context) error
}

// StartNotificationWorker registers notification handlers and then runs the
// event queue workers until ctx is cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, queue QueueRunner) error {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if queue == nil {
		return nil
	}
	return queue.Run(ctx)
}
