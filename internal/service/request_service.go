package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/repository"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util/errorutil"
)

const resourceServiceRequest = "service request"

// RequestService coordinates the service request lifecycle.
type RequestService struct {
	requests   repository.ServiceRequestRepository
	analyses   repository.ServiceAnalysisRepository
	agents     repository.ServiceAgentRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo  repository.ServiceRequestRepository
	AnalysisRepo repository.ServiceAnalysisRepository
	AgentRepo    repository.ServiceAgentRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// CreateRequestInput describes a customer submission.
type CreateRequestInput struct {
	CategoryID          string
	Description         string
	AddressText         *string
	SuggestedComplexity *int
}

// AssignInput names the agent and the agreed estimate.
type AssignInput struct {
	AgentID  string
	Amount   float64
	Currency string
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		analyses:   deps.AnalysisRepo,
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// CreateRequest stores a new request in AWAITING_ANALYSIS for the calling customer.
func (s *RequestService) CreateRequest(ctx context.Context, actor events.Actor, input CreateRequestInput) (*domain.ServiceRequest, error) {
	req, err := domain.NewServiceRequest(domain.NewServiceRequestInput{
		CustomerID:          actor.SubjectID,
		CategoryID:          strings.TrimSpace(input.CategoryID),
		Description:         input.Description,
		AddressText:         input.AddressText,
		SuggestedComplexity: input.SuggestedComplexity,
	})
	if err != nil {
		return nil, mapError(err, resourceServiceRequest)
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, mapError(err, resourceServiceRequest)
	}
	s.publishEvent(ctx, events.NewEvent(events.EventRequestCreated, req.ID(), actor, events.RequestCreatedPayload{
		CustomerID: req.CustomerID(),
		CategoryID: req.CategoryID(),
	}))
	return req, nil
}

// GetRequest returns a request the actor is allowed to see.
func (s *RequestService) GetRequest(ctx context.Context, actor events.Actor, id string) (*domain.ServiceRequest, error) {
	return s.load(ctx, actor, id)
}

// GetAnalysis returns the classifier verdict for a visible request.
func (s *RequestService) GetAnalysis(ctx context.Context, actor events.Actor, id string) (*domain.ServiceAnalysis, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	analysis, err := s.analyses.GetByRequestID(ctx, id)
	if err != nil {
		return nil, mapError(err, "service analysis")
	}
	return analysis, nil
}

func (s *RequestService) Evaluate(ctx context.Context, actor events.Actor, id string, complexity int) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpEvaluate, func(req *domain.ServiceRequest) error {
		return req.Evaluate(complexity)
	})
}

func (s *RequestService) Approve(ctx context.Context, actor events.Actor, id string) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpApprove, func(req *domain.ServiceRequest) error {
		return req.Approve()
	})
}

// AssignProvider hands the request to an active agent.
func (s *RequestService) AssignProvider(ctx context.Context, actor events.Actor, id string, input AssignInput) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpAssignProvider, func(req *domain.ServiceRequest) error {
		if !req.CanTransition(domain.OpAssignProvider) {
			return req.AssignProvider(input.AgentID, domain.Money{Amount: input.Amount, Currency: input.Currency})
		}
		agentID := strings.TrimSpace(input.AgentID)
		if agentID == "" {
			return domain.ErrProviderRequired
		}
		agent, err := s.agents.GetByID(ctx, agentID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("agent does not exist", map[string]any{"agent_id": agentID})
		}
		if err != nil {
			return err
		}
		if !agent.IsActive() {
			return apperrors.NewValidationError("agent is not active", map[string]any{"agent_id": agentID})
		}
		return req.AssignProvider(agentID, domain.Money{Amount: input.Amount, Currency: input.Currency})
	})
}

// Start is visible to agents only when the request is assigned to them.
func (s *RequestService) Start(ctx context.Context, actor events.Actor, id string) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpStart, func(req *domain.ServiceRequest) error {
		return req.Start()
	})
}

func (s *RequestService) Complete(ctx context.Context, actor events.Actor, id string) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpComplete, func(req *domain.ServiceRequest) error {
		return req.Complete()
	})
}

func (s *RequestService) Cancel(ctx context.Context, actor events.Actor, id, reason string) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpCancel, func(req *domain.ServiceRequest) error {
		return req.Cancel(reason)
	})
}

func (s *RequestService) Update(ctx context.Context, actor events.Actor, id, description string) (*domain.ServiceRequest, error) {
	return s.mutate(ctx, actor, id, domain.OpUpdate, func(req *domain.ServiceRequest) error {
		return req.Update(description)
	})
}

// mutate loads, applies one transition and saves conditionally on the loaded version.
func (s *RequestService) mutate(ctx context.Context, actor events.Actor, id, op string, apply func(*domain.ServiceRequest) error) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	oldStatus := req.Status()
	if err := apply(req); err != nil {
		s.metrics.RecordTransition(op, "rejected")
		return nil, mapError(err, resourceServiceRequest)
	}
	if err := s.requests.Save(ctx, req); err != nil {
		s.metrics.RecordTransition(op, "conflict")
		return nil, mapError(err, resourceServiceRequest)
	}
	s.metrics.RecordTransition(op, "ok")
	s.logger.Info("service request transition",
		zap.String("request_id", req.ID()),
		zap.String("operation", op),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(req.Status())),
		zap.String("actor_role", string(actor.Role)),
	)

	if oldStatus != req.Status() {
		s.publishEvent(ctx, events.NewEvent(events.EventRequestStatusChanged, req.ID(), actor, events.StatusChangedPayload{
			Operation: op,
			OldStatus: oldStatus,
			NewStatus: req.Status(),
		}))
	} else {
		s.publishEvent(ctx, events.NewEvent(events.EventRequestUpdated, req.ID(), actor, nil))
	}
	return req, nil
}

// load fetches a request and hides it from actors who may not see it.
func (s *RequestService) load(ctx context.Context, actor events.Actor, id string) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapError(err, resourceServiceRequest)
	}
	if !canView(actor, req) {
		return nil, apperrors.NewNotFound(resourceServiceRequest, nil)
	}
	return req, nil
}

func canView(actor events.Actor, req *domain.ServiceRequest) bool {
	switch actor.Role {
	case domain.RoleStaff, domain.RoleAdmin:
		return true
	case domain.RoleCustomer:
		return req.CustomerID() == actor.SubjectID
	case domain.RoleAgent:
		assigned, ok := req.AssignedProviderID()
		return ok && assigned == actor.SubjectID
	default:
		return false
	}
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.ServiceRequestID),
			zap.Error(err),
		)
	}
}
