package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "service_request_created"
	EventRequestStatusChanged EventType = "service_request_status_changed"
	EventRequestUpdated       EventType = "service_request_updated"
	EventSafetyAdviceIssued   EventType = "safety_advice_issued"
)

// Actor identifies who caused an event. The analysis worker publishes with an empty actor.
type Actor struct {
	Role      domain.Role `json:"role,omitempty"`
	SubjectID string      `json:"subject_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID               string    `json:"id"`
	Type             EventType `json:"type"`
	ServiceRequestID string    `json:"service_request_id"`
	Actor            Actor     `json:"actor"`
	Timestamp        time.Time `json:"timestamp"`
	Payload          any       `json:"payload"`
}

// NewEvent stamps an id and time on a payload.
func NewEvent(eventType EventType, requestID string, actor Actor, payload any) Event {
	return Event{
		ID:               uuid.NewString(),
		Type:             eventType,
		ServiceRequestID: requestID,
		Actor:            actor,
		Timestamp:        time.Now().UTC(),
		Payload:          payload,
	}
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	CustomerID string `json:"customer_id"`
	CategoryID string `json:"category_id"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	Operation string               `json:"operation"`
	OldStatus domain.ServiceStatus `json:"old_status"`
	NewStatus domain.ServiceStatus `json:"new_status"`
}

// SafetyAdvicePayload is pushed to subscribers of a request after analysis.
type SafetyAdvicePayload struct {
	ServiceRequestID string `json:"service_request_id"`
	SafetyAdvice     string `json:"safety_advice"`
	UrgencyLevel     int    `json:"urgency_level"`
	IsCritical       bool   `json:"is_critical"`
}
