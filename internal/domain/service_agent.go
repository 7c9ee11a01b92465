package domain

import (
	"strings"

	"github.com/google/uuid"
)

// AgentCapability declares the categories and complexity an agent may take on.
type AgentCapability struct {
	ID            string
	CategoryID    string
	MaxComplexity int
}

// ServiceAgentState is the persisted shape of a ServiceAgent.
type ServiceAgentState struct {
	ID           string
	FullName     string
	IsActive     bool
	Capabilities []AgentCapability
}

// ServiceAgent is a technician who can be matched to requests. It changes only
// through AddCapability and Deactivate.
type ServiceAgent struct {
	state ServiceAgentState
}

// NewServiceAgent creates an active agent without capabilities.
func NewServiceAgent(fullName string) (*ServiceAgent, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrAgentNameRequired
	}
	return &ServiceAgent{state: ServiceAgentState{ID: uuid.NewString(), FullName: fullName, IsActive: true}}, nil
}

// RestoreServiceAgent rebuilds an agent from stored state.
func RestoreServiceAgent(state ServiceAgentState) *ServiceAgent {
	return &ServiceAgent{state: copyAgentState(state)}
}

// Snapshot returns a copy of the current state for persistence.
func (a *ServiceAgent) Snapshot() ServiceAgentState {
	return copyAgentState(a.state)
}

func (a *ServiceAgent) ID() string       { return a.state.ID }
func (a *ServiceAgent) FullName() string { return a.state.FullName }
func (a *ServiceAgent) IsActive() bool   { return a.state.IsActive }

// Capabilities returns a copy of the declared capabilities.
func (a *ServiceAgent) Capabilities() []AgentCapability {
	return append([]AgentCapability(nil), a.state.Capabilities...)
}

// AddCapability registers one capability per category.
func (a *ServiceAgent) AddCapability(categoryID string, maxComplexity int) (AgentCapability, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return AgentCapability{}, ErrCategoryRequired
	}
	if err := ValidateComplexity(maxComplexity); err != nil {
		return AgentCapability{}, err
	}
	if _, exists := a.CapabilityFor(categoryID); exists {
		return AgentCapability{}, ErrDuplicateCapability
	}
	capability := AgentCapability{ID: uuid.NewString(), CategoryID: categoryID, MaxComplexity: maxComplexity}
	a.state.Capabilities = append(a.state.Capabilities, capability)
	return capability, nil
}

// CapabilityFor returns the first capability for categoryID.
func (a *ServiceAgent) CapabilityFor(categoryID string) (AgentCapability, bool) {
	for _, capability := range a.state.Capabilities {
		if capability.CategoryID == categoryID {
			return capability, true
		}
	}
	return AgentCapability{}, false
}

// Deactivate removes the agent from matching. It cannot be undone.
func (a *ServiceAgent) Deactivate() {
	a.state.IsActive = false
}

func copyAgentState(state ServiceAgentState) ServiceAgentState {
	state.Capabilities = append([]AgentCapability(nil), state.Capabilities...)
	return state
}
