package handlers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/service"
)

// EventsHandler streams per-request events as server-sent events.
type EventsHandler struct {
	requests    *service.RequestService
	broadcaster events.Broadcaster
	heartbeat   time.Duration
	logger      *zap.Logger
}

// NewEventsHandler constructs handler. A non-positive heartbeat defaults to 15s.
func NewEventsHandler(requests *service.RequestService, broadcaster events.Broadcaster, heartbeat time.Duration, logger *zap.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{requests: requests, broadcaster: broadcaster, heartbeat: heartbeat, logger: logger}
}

// Stream GET /service-requests/:id/events.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	req, err := h.requests.GetRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	// The body writer outlives the handler, so the subscription gets its own context.
	ctx, cancel := context.WithCancel(context.Background())
	messages, stop, err := h.broadcaster.Listen(ctx, req.ID())
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	requestID := req.ID()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stop()

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		if err := writeComment(w, "connected"); err != nil {
			return
		}
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					h.logger.Debug("sse client gone", zap.String("service_request_id", requestID))
					return
				}
			case <-ticker.C:
				if err := writeComment(w, "heartbeat"); err != nil {
					h.logger.Debug("sse client gone", zap.String("service_request_id", requestID))
					return
				}
			}
		}
	})
	return nil
}

func writeComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return w.Flush()
}
