package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/observability"
)

// NotificationService turns domain events into pushes to request subscribers.
type NotificationService struct {
	dispatcher  events.Dispatcher
	broadcaster events.Broadcaster
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, broadcaster events.Broadcaster, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterHandlers subscribes to events and returns the types it relays.
func (n *NotificationService) RegisterHandlers() []events.EventType {
	if n.dispatcher == nil {
		return nil
	}
	handlers := []struct {
		eventType events.EventType
		handle    events.EventHandler
	}{
		{events.EventSafetyAdviceIssued, n.handleSafetyAdvice},
		{events.EventRequestStatusChanged, n.handleStatusChanged},
		{events.EventRequestCreated, n.handleRequestCreated},
	}
	subscribed := make([]events.EventType, 0, len(handlers))
	for _, h := range handlers {
		n.dispatcher.Subscribe(h.eventType, h.handle)
		subscribed = append(subscribed, h.eventType)
	}
	return subscribed
}

// PublishSafetyAdvice emits advice for a request. Blank advice is dropped.
func (n *NotificationService) PublishSafetyAdvice(ctx context.Context, advice events.SafetyAdvicePayload) error {
	if strings.TrimSpace(advice.SafetyAdvice) == "" || n.dispatcher == nil {
		return nil
	}
	return n.dispatcher.Publish(ctx, events.NewEvent(events.EventSafetyAdviceIssued, advice.ServiceRequestID, events.Actor{}, advice))
}

func (n *NotificationService) handleSafetyAdvice(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SafetyAdvicePayload)
	n.logger.Info("SafetyAdviceIssued",
		zap.String("request_id", event.ServiceRequestID),
		zap.Int("urgency_level", payload.UrgencyLevel),
		zap.Bool("is_critical", payload.IsCritical))
	err := n.broadcast(ctx, event)
	n.metrics.RecordNotification(err == nil)
	return err
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Debug("ServiceRequestStatusChanged", zap.String("request_id", event.ServiceRequestID), zap.Any("payload", event.Payload))
	return n.broadcast(ctx, event)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCreated", zap.String("request_id", event.ServiceRequestID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event) error {
	if n.broadcaster == nil {
		return nil
	}
	if err := n.broadcaster.Broadcast(ctx, event); err != nil {
		n.logger.Warn("broadcast failed",
			zap.String("request_id", event.ServiceRequestID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
