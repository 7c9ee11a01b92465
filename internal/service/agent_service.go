package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/repository"
)

const resourceServiceAgent = "service agent"

// AgentService manages the agent roster. Every change goes through the agent aggregate.
type AgentService struct {
	agents repository.ServiceAgentRepository
	logger *zap.Logger
}

// CapabilityInput declares one category an agent covers.
type CapabilityInput struct {
	CategoryID    string
	MaxComplexity int
}

// RegisterAgentInput describes a new agent.
type RegisterAgentInput struct {
	FullName     string
	Capabilities []CapabilityInput
	Inactive     bool
}

// ImportReport counts what a roster import did.
type ImportReport struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.ServiceAgentRepository, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{agents: agents, logger: logger}
}

// RegisterAgent validates and stores a new agent with its capabilities.
func (s *AgentService) RegisterAgent(ctx context.Context, input RegisterAgentInput) (*domain.ServiceAgent, error) {
	agent, err := buildAgent(input)
	if err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	if err := s.agents.Save(ctx, agent); err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	s.logger.Info("service agent registered",
		zap.String("agent_id", agent.ID()),
		zap.Int("capabilities", len(input.Capabilities)))
	return agent, nil
}

// AddCapability lets an existing agent take on another category.
func (s *AgentService) AddCapability(ctx context.Context, agentID string, input CapabilityInput) (*domain.ServiceAgent, error) {
	return s.mutate(ctx, agentID, func(agent *domain.ServiceAgent) error {
		_, err := agent.AddCapability(input.CategoryID, input.MaxComplexity)
		return err
	})
}

// Deactivate removes an agent from matching and assignment.
func (s *AgentService) Deactivate(ctx context.Context, agentID string) (*domain.ServiceAgent, error) {
	return s.mutate(ctx, agentID, func(agent *domain.ServiceAgent) error {
		agent.Deactivate()
		return nil
	})
}

// GetAgent returns one agent.
func (s *AgentService) GetAgent(ctx context.Context, agentID string) (*domain.ServiceAgent, error) {
	agent, err := s.agents.GetByID(ctx, strings.TrimSpace(agentID))
	if err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	return agent, nil
}

// ListAgents returns every agent, active or not, ordered by id.
func (s *AgentService) ListAgents(ctx context.Context) ([]*domain.ServiceAgent, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	return agents, nil
}

// ImportRoster registers roster entries whose name is not taken yet, so the same
// roster can be applied on every start. An invalid entry aborts the import.
func (s *AgentService) ImportRoster(ctx context.Context, entries []RegisterAgentInput) (ImportReport, error) {
	var report ImportReport
	existing, err := s.agents.List(ctx)
	if err != nil {
		return report, mapError(err, resourceServiceAgent)
	}
	names := make(map[string]struct{}, len(existing))
	for _, agent := range existing {
		names[strings.ToLower(agent.FullName())] = struct{}{}
	}
	for _, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(entry.FullName))
		if _, taken := names[key]; taken {
			report.Skipped++
			continue
		}
		if _, err := s.RegisterAgent(ctx, entry); err != nil {
			return report, err
		}
		names[key] = struct{}{}
		report.Created++
	}
	return report, nil
}

func (s *AgentService) mutate(ctx context.Context, agentID string, apply func(*domain.ServiceAgent) error) (*domain.ServiceAgent, error) {
	agent, err := s.agents.GetByID(ctx, strings.TrimSpace(agentID))
	if err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	if err := apply(agent); err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	if err := s.agents.Save(ctx, agent); err != nil {
		return nil, mapError(err, resourceServiceAgent)
	}
	return agent, nil
}

func buildAgent(input RegisterAgentInput) (*domain.ServiceAgent, error) {
	agent, err := domain.NewServiceAgent(input.FullName)
	if err != nil {
		return nil, err
	}
	for _, capability := range input.Capabilities {
		if _, err := agent.AddCapability(capability.CategoryID, capability.MaxComplexity); err != nil {
			return nil, err
		}
	}
	if input.Inactive {
		agent.Deactivate()
	}
	return agent, nil
}
