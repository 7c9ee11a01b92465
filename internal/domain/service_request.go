package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxDescriptionLength        = 1000
	MaxUpdatedDescriptionLength = 2000
)

// Operation names used in TransitionError.
const (
	OpMarkAsAnalyzed = "MarkAsAnalyzed"
	OpEvaluate       = "Evaluate"
	OpApprove        = "Approve"
	OpAssignProvider = "AssignProvider"
	OpStart          = "Start"
	OpComplete       = "Complete"
	OpCancel         = "Cancel"
	OpUpdate         = "Update"
)

var nonTerminalStatuses = []ServiceStatus{
	StatusAwaitingAnalysis,
	StatusCreated,
	StatusUrgentDispatch,
	StatusPendingReview,
	StatusApproved,
	StatusAssigned,
	StatusInProgress,
}

// allowedSources maps each operation to the statuses it may start from.
var allowedSources = map[string][]ServiceStatus{
	OpMarkAsAnalyzed: {StatusAwaitingAnalysis},
	OpEvaluate:       {StatusCreated},
	OpApprove:        {StatusPendingReview},
	OpAssignProvider: {StatusPendingReview, StatusApproved},
	OpStart:          {StatusAssigned},
	OpComplete:       {StatusInProgress},
	OpCancel:         nonTerminalStatuses,
	OpUpdate: {
		StatusAwaitingAnalysis,
		StatusCreated,
		StatusUrgentDispatch,
		StatusPendingReview,
		StatusApproved,
	},
}

// ServiceRequestState is the persisted shape of a ServiceRequest.
type ServiceRequestState struct {
	ID                  string
	CustomerID          string
	CategoryID          string
	Description         string
	AddressText         *string
	Complexity          *int
	SuggestedComplexity *int
	Status              ServiceStatus
	AssignedProviderID  *string
	EstimatedCost       *Money
	CancellationReason  *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int64
}

// ServiceRequest is the aggregate root for a customer's request. Lifecycle
// fields change only through the transition methods below.
type ServiceRequest struct {
	state ServiceRequestState
}

// NewServiceRequestInput describes a request at intake.
type NewServiceRequestInput struct {
	CustomerID          string
	CategoryID          string
	Description         string
	AddressText         *string
	SuggestedComplexity *int
}

// NewServiceRequest validates intake data and returns a request in AWAITING_ANALYSIS.
func NewServiceRequest(input NewServiceRequestInput) (*ServiceRequest, error) {
	if strings.TrimSpace(input.CustomerID) == "" {
		return nil, ErrCustomerRequired
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		return nil, ErrCategoryRequired
	}
	description, err := normalizeDescription(input.Description, MaxDescriptionLength)
	if err != nil {
		return nil, err
	}
	if input.SuggestedComplexity != nil {
		if err := ValidateComplexity(*input.SuggestedComplexity); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	return &ServiceRequest{state: ServiceRequestState{
		ID:                  uuid.NewString(),
		CustomerID:          input.CustomerID,
		CategoryID:          input.CategoryID,
		Description:         description,
		AddressText:         cloneString(input.AddressText),
		SuggestedComplexity: cloneInt(input.SuggestedComplexity),
		Status:              StatusAwaitingAnalysis,
		CreatedAt:           now,
		UpdatedAt:           now,
	}}, nil
}

// RestoreServiceRequest rebuilds an aggregate from stored state.
func RestoreServiceRequest(state ServiceRequestState) *ServiceRequest {
	return &ServiceRequest{state: copyState(state)}
}

// Snapshot returns a copy of the current state for persistence or display.
func (r *ServiceRequest) Snapshot() ServiceRequestState {
	return copyState(r.state)
}

func (r *ServiceRequest) ID() string            { return r.state.ID }
func (r *ServiceRequest) CustomerID() string    { return r.state.CustomerID }
func (r *ServiceRequest) CategoryID() string    { return r.state.CategoryID }
func (r *ServiceRequest) Description() string   { return r.state.Description }
func (r *ServiceRequest) Status() ServiceStatus { return r.state.Status }
func (r *ServiceRequest) CreatedAt() time.Time  { return r.state.CreatedAt }
func (r *ServiceRequest) UpdatedAt() time.Time  { return r.state.UpdatedAt }
func (r *ServiceRequest) Version() int64        { return r.state.Version }

// Complexity returns the evaluated complexity, if any.
func (r *ServiceRequest) Complexity() (int, bool) {
	if r.state.Complexity == nil {
		return 0, false
	}
	return *r.state.Complexity, true
}

// AssignedProviderID returns the assigned agent, if any.
func (r *ServiceRequest) AssignedProviderID() (string, bool) {
	if r.state.AssignedProviderID == nil {
		return "", false
	}
	return *r.state.AssignedProviderID, true
}

// EstimatedCost returns the cost agreed at assignment, if any.
func (r *ServiceRequest) EstimatedCost() (Money, bool) {
	if r.state.EstimatedCost == nil {
		return Money{}, false
	}
	return *r.state.EstimatedCost, true
}

// SuggestedComplexity is the customer's own estimate given at intake.
func (r *ServiceRequest) SuggestedComplexity() (int, bool) {
	if r.state.SuggestedComplexity == nil {
		return 0, false
	}
	return *r.state.SuggestedComplexity, true
}

func (r *ServiceRequest) AddressText() string {
	if r.state.AddressText == nil {
		return ""
	}
	return *r.state.AddressText
}

// CancellationReason is empty unless the request was cancelled.
func (r *ServiceRequest) CancellationReason() string {
	if r.state.CancellationReason == nil {
		return ""
	}
	return *r.state.CancellationReason
}

// SetVersion records the version a store assigned after a conditional write.
func (r *ServiceRequest) SetVersion(version int64) {
	r.state.Version = version
}

// MarkAsAnalyzed routes the request by urgency. Analysis happens exactly once.
func (r *ServiceRequest) MarkAsAnalyzed(urgencyLevel int) error {
	if err := r.require(OpMarkAsAnalyzed); err != nil {
		return err
	}
	if err := ValidateUrgency(urgencyLevel); err != nil {
		return err
	}
	if urgencyLevel >= CriticalUrgency {
		r.moveTo(StatusUrgentDispatch)
	} else {
		r.moveTo(StatusCreated)
	}
	return nil
}

// Evaluate records the staff-assessed complexity.
func (r *ServiceRequest) Evaluate(complexity int) error {
	if err := r.require(OpEvaluate); err != nil {
		return err
	}
	if err := ValidateComplexity(complexity); err != nil {
		return err
	}
	r.state.Complexity = &complexity
	r.moveTo(StatusPendingReview)
	return nil
}

// Approve accepts the evaluated request for assignment.
func (r *ServiceRequest) Approve() error {
	if err := r.require(OpApprove); err != nil {
		return err
	}
	r.moveTo(StatusApproved)
	return nil
}

// AssignProvider hands the request to an agent with an estimated cost.
func (r *ServiceRequest) AssignProvider(agentID string, estimatedCost Money) error {
	if err := r.require(OpAssignProvider); err != nil {
		return err
	}
	if strings.TrimSpace(agentID) == "" {
		return ErrProviderRequired
	}
	cost, err := NewMoney(estimatedCost.Amount, estimatedCost.Currency)
	if err != nil {
		return err
	}
	r.state.AssignedProviderID = &agentID
	r.state.EstimatedCost = &cost
	r.moveTo(StatusAssigned)
	return nil
}

func (r *ServiceRequest) Start() error {
	if err := r.require(OpStart); err != nil {
		return err
	}
	r.moveTo(StatusInProgress)
	return nil
}

func (r *ServiceRequest) Complete() error {
	if err := r.require(OpComplete); err != nil {
		return err
	}
	r.moveTo(StatusCompleted)
	return nil
}

// Cancel ends the request from any non-terminal state.
func (r *ServiceRequest) Cancel(reason string) error {
	if err := r.require(OpCancel); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrCancellationReasonRequired
	}
	r.state.CancellationReason = &reason
	r.moveTo(StatusCancelled)
	return nil
}

// Update replaces the description while the request is not yet in the field.
func (r *ServiceRequest) Update(description string) error {
	if err := r.require(OpUpdate); err != nil {
		return err
	}
	normalized, err := normalizeDescription(description, MaxUpdatedDescriptionLength)
	if err != nil {
		return err
	}
	r.state.Description = normalized
	r.state.UpdatedAt = time.Now().UTC()
	return nil
}

// CanTransition reports whether op is legal from the current status.
func (r *ServiceRequest) CanTransition(op string) bool {
	return r.require(op) == nil
}

func (r *ServiceRequest) require(op string) error {
	sources := allowedSources[op]
	for _, status := range sources {
		if r.state.Status == status {
			return nil
		}
	}
	return &TransitionError{
		Operation: op,
		Current:   r.state.Status,
		Required:  append([]ServiceStatus(nil), sources...),
	}
}

func (r *ServiceRequest) moveTo(status ServiceStatus) {
	r.state.Status = status
	r.state.UpdatedAt = time.Now().UTC()
}

func normalizeDescription(description string, max int) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" || utf8.RuneCountInString(description) > max {
		return "", ErrInvalidDescription
	}
	return description, nil
}

func copyState(state ServiceRequestState) ServiceRequestState {
	out := state
	out.AddressText = cloneString(state.AddressText)
	out.Complexity = cloneInt(state.Complexity)
	out.SuggestedComplexity = cloneInt(state.SuggestedComplexity)
	out.AssignedProviderID = cloneString(state.AssignedProviderID)
	out.CancellationReason = cloneString(state.CancellationReason)
	if state.EstimatedCost != nil {
		cost := *state.EstimatedCost
		out.EstimatedCost = &cost
	}
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
