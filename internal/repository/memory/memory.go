// Package memory provides mutex-guarded in-process repositories. They back the
// service when no Postgres DSN is configured and serve as fakes in tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/repository"
)

// ErrDuplicateID is returned when Create is called twice for the same id.
var ErrDuplicateID = errors.New("memory: duplicate id")

// DB holds all in-memory tables behind one lock so multi-table writes are atomic.
type DB struct {
	mu       sync.RWMutex
	requests map[string]domain.ServiceRequestState
	analyses map[string]domain.ServiceAnalysis
	agents   map[string]domain.ServiceAgentState
}

// New returns an empty database.
func New() *DB {
	return &DB{
		requests: make(map[string]domain.ServiceRequestState),
		analyses: make(map[string]domain.ServiceAnalysis),
		agents:   make(map[string]domain.ServiceAgentState),
	}
}

func (db *DB) Requests() *RequestStore  { return &RequestStore{db: db} }
func (db *DB) Analyses() *AnalysisStore { return &AnalysisStore{db: db} }
func (db *DB) Agents() *AgentStore      { return &AgentStore{db: db} }

// RequestStore implements repository.ServiceRequestRepository.
type RequestStore struct {
	db *DB
}

var _ repository.ServiceRequestRepository = (*RequestStore)(nil)

func (s *RequestStore) Create(ctx context.Context, req *domain.ServiceRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.requests[req.ID()]; exists {
		return ErrDuplicateID
	}
	state := req.Snapshot()
	state.Version = 1
	s.db.requests[state.ID] = state
	req.SetVersion(1)
	return nil
}

func (s *RequestStore) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	state, ok := s.db.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return domain.RestoreServiceRequest(state), nil
}

func (s *RequestStore) ListAwaitingAnalysis(ctx context.Context, limit int) ([]*domain.ServiceRequest, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.db.mu.RLock()
	var pending []domain.ServiceRequestState
	for _, state := range s.db.requests {
		if state.Status == domain.StatusAwaitingAnalysis {
			pending = append(pending, state)
		}
	}
	s.db.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	result := make([]*domain.ServiceRequest, 0, len(pending))
	for _, state := range pending {
		result = append(result, domain.RestoreServiceRequest(state))
	}
	return result, nil
}

func (s *RequestStore) Save(ctx context.Context, req *domain.ServiceRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.checkVersion(req); err != nil {
		return err
	}
	s.db.storeRequest(req)
	return nil
}

// checkVersion must be called with the write lock held.
func (db *DB) checkVersion(req *domain.ServiceRequest) error {
	stored, ok := db.requests[req.ID()]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != req.Version() {
		return repository.ErrVersionConflict
	}
	return nil
}

// storeRequest must be called with the write lock held.
func (db *DB) storeRequest(req *domain.ServiceRequest) {
	next := req.Version() + 1
	state := req.Snapshot()
	state.Version = next
	db.requests[state.ID] = state
	req.SetVersion(next)
}

// AnalysisStore implements repository.AnalysisStore.
type AnalysisStore struct {
	db *DB
}

var _ repository.AnalysisStore = (*AnalysisStore)(nil)

func (s *AnalysisStore) GetByRequestID(ctx context.Context, requestID string) (*domain.ServiceAnalysis, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	analysis, ok := s.db.analyses[requestID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &analysis, nil
}

func (s *AnalysisStore) RecordAnalysis(ctx context.Context, req *domain.ServiceRequest, analysis *domain.ServiceAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.analyses[req.ID()]; exists {
		return repository.ErrAnalysisExists
	}
	if err := s.db.checkVersion(req); err != nil {
		return err
	}
	stored := *analysis
	stored.ServiceRequestID = req.ID()
	s.db.analyses[req.ID()] = stored
	s.db.storeRequest(req)
	return nil
}

// AgentStore implements repository.ServiceAgentRepository.
type AgentStore struct {
	db *DB
}

var _ repository.ServiceAgentRepository = (*AgentStore)(nil)

// Save inserts or replaces an agent.
func (s *AgentStore) Save(ctx context.Context, agent *domain.ServiceAgent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	state := agent.Snapshot()
	s.db.agents[state.ID] = state
	return nil
}

func (s *AgentStore) List(ctx context.Context) ([]*domain.ServiceAgent, error) {
	return s.list(false), nil
}

func (s *AgentStore) ListActiveWithCapabilities(ctx context.Context) ([]*domain.ServiceAgent, error) {
	return s.list(true), nil
}

func (s *AgentStore) GetByID(ctx context.Context, id string) (*domain.ServiceAgent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	state, ok := s.db.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return domain.RestoreServiceAgent(state), nil
}

func (s *AgentStore) list(activeOnly bool) []*domain.ServiceAgent {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	result := make([]*domain.ServiceAgent, 0, len(s.db.agents))
	for _, state := range s.db.agents {
		if activeOnly && !state.IsActive {
			continue
		}
		result = append(result, domain.RestoreServiceAgent(state))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
