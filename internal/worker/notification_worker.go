package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/service"
)

// StartNotificationWorker subscribes the notification relays to the event dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	subscribed := notificationService.RegisterHandlers()
	names := make([]string, 0, len(subscribed))
	for _, eventType := range subscribed {
		names = append(names, string(eventType))
	}
	if len(names) == 0 {
		logger.Warn("notification worker has no event dispatcher; relays disabled")
		return
	}
	logger.Info("notification worker started", zap.Strings("events", names))
}

var _ NotificationSink = (*service.NotificationService)(nil)
