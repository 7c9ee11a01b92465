package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// ServiceAgentRepository stores agents with their capabilities. Capabilities are
// only ever added, so Save upserts the agent row and inserts missing capabilities.
type ServiceAgentRepository interface {
	Save(ctx context.Context, agent *domain.ServiceAgent) error
	List(ctx context.Context) ([]*domain.ServiceAgent, error)
	ListActiveWithCapabilities(ctx context.Context) ([]*domain.ServiceAgent, error)
	GetByID(ctx context.Context, id string) (*domain.ServiceAgent, error)
}

type serviceAgentRepository struct {
	pool *pgxpool.Pool
}

// NewServiceAgentRepository instantiates repository.
func NewServiceAgentRepository(pool *pgxpool.Pool) ServiceAgentRepository {
	return &serviceAgentRepository{pool: pool}
}

const agentWithCapabilitiesQuery = `
        SELECT a.id, a.full_name, a.is_active, c.id, c.category_id, c.max_complexity
        FROM service_agents a
        LEFT JOIN agent_capabilities c ON c.agent_id = a.id`

func (r *serviceAgentRepository) Save(ctx context.Context, agent *domain.ServiceAgent) (err error) {
	const upsertAgent = `
        INSERT INTO service_agents (id, full_name, is_active)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, is_active = EXCLUDED.is_active`
	const insertCapability = `
        INSERT INTO agent_capabilities (id, agent_id, category_id, max_complexity)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (agent_id, category_id) DO NOTHING`

	state := agent.Snapshot()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin agent tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, upsertAgent, state.ID, state.FullName, state.IsActive); err != nil {
		return fmt.Errorf("upsert agent %s: %w", state.ID, err)
	}
	for _, capability := range state.Capabilities {
		if _, err = tx.Exec(ctx, insertCapability, capability.ID, state.ID, capability.CategoryID, capability.MaxComplexity); err != nil {
			return fmt.Errorf("insert capability %s for %s: %w", capability.CategoryID, state.ID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit agent tx: %w", err)
	}
	return nil
}

func (r *serviceAgentRepository) List(ctx context.Context) ([]*domain.ServiceAgent, error) {
	rows, err := r.pool.Query(ctx, agentWithCapabilitiesQuery+` ORDER BY a.id, c.category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *serviceAgentRepository) ListActiveWithCapabilities(ctx context.Context) ([]*domain.ServiceAgent, error) {
	rows, err := r.pool.Query(ctx, agentWithCapabilitiesQuery+` WHERE a.is_active ORDER BY a.id, c.category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *serviceAgentRepository) GetByID(ctx context.Context, id string) (*domain.ServiceAgent, error) {
	if err := lookupID(id); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, agentWithCapabilitiesQuery+` WHERE a.id=$1 ORDER BY c.category_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	agents, err := scanAgents(rows)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, ErrNotFound
	}
	return agents[0], nil
}

// scanAgents folds joined agent/capability rows; rows must be ordered by agent id.
func scanAgents(rows pgx.Rows) ([]*domain.ServiceAgent, error) {
	var states []domain.ServiceAgentState
	for rows.Next() {
		var (
			agent         domain.ServiceAgentState
			capID         *string
			categoryID    *string
			maxComplexity *int
		)
		if err := rows.Scan(&agent.ID, &agent.FullName, &agent.IsActive, &capID, &categoryID, &maxComplexity); err != nil {
			return nil, err
		}
		if n := len(states); n == 0 || states[n-1].ID != agent.ID {
			states = append(states, agent)
		}
		if capID != nil && categoryID != nil && maxComplexity != nil {
			last := &states[len(states)-1]
			last.Capabilities = append(last.Capabilities, domain.AgentCapability{
				ID:            *capID,
				CategoryID:    *categoryID,
				MaxComplexity: *maxComplexity,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result := make([]*domain.ServiceAgent, 0, len(states))
	for _, state := range states {
		result = append(result, domain.RestoreServiceAgent(state))
	}
	return result, nil
}
