package service

import (
	"context"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/matching"
	"github.com/spec-kit/dispatch-service/internal/repository"
)

// MatchingService ranks active agents for an evaluated request.
type MatchingService struct {
	requests *RequestService
	agents   repository.ServiceAgentRepository
}

// NewMatchingService constructs the service.
func NewMatchingService(requests *RequestService, agents repository.ServiceAgentRepository) *MatchingService {
	return &MatchingService{requests: requests, agents: agents}
}

// MatchAgents returns qualified agents best-first. It fails with PRECONDITION_FAILED
// until the request has an evaluated complexity.
func (s *MatchingService) MatchAgents(ctx context.Context, actor events.Actor, requestID string) ([]domain.MatchingResult, error) {
	req, err := s.requests.GetRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if _, ok := req.Complexity(); !ok {
		return nil, mapError(matching.ErrComplexityNotEvaluated, resourceServiceRequest)
	}
	agents, err := s.agents.ListActiveWithCapabilities(ctx)
	if err != nil {
		return nil, mapError(err, "service agent")
	}
	results, err := matching.Rank(matching.InputFor(req, agents))
	if err != nil {
		return nil, mapError(err, resourceServiceRequest)
	}
	return results, nil
}
