package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/service"
)

func TestNotificationWorkerRelaysSafetyAdvice(t *testing.T) {
	broadcaster := events.NewLocalBroadcaster()
	notifications := service.NewNotificationService(events.NewInMemoryDispatcher(), broadcaster, zap.NewNop(), nil)
	StartNotificationWorker(notifications, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, stop, err := broadcaster.Listen(ctx, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	err = notifications.PublishSafetyAdvice(ctx, events.SafetyAdvicePayload{
		ServiceRequestID: "req-1",
		SafetyAdvice:     "Shut off the gas valve",
		UrgencyLevel:     5,
		IsCritical:       true,
	})
	if err != nil {
		t.Fatalf("PublishSafetyAdvice: %v", err)
	}

	select {
	case msg := <-messages:
		var event events.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatal(err)
		}
		if event.Type != events.EventSafetyAdviceIssued || event.ServiceRequestID != "req-1" {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no event relayed")
	}
}

func TestNotificationWorkerNilService(t *testing.T) {
	StartNotificationWorker(nil, nil)
}
