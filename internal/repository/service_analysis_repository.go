package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// ServiceAnalysisRepository reads stored classifier verdicts.
type ServiceAnalysisRepository interface {
	GetByRequestID(ctx context.Context, requestID string) (*domain.ServiceAnalysis, error)
}

// AnalysisRecorder stores an analysis and the request transition it caused as one unit.
// It returns ErrAnalysisExists or ErrVersionConflict and writes nothing when either applies.
type AnalysisRecorder interface {
	RecordAnalysis(ctx context.Context, req *domain.ServiceRequest, analysis *domain.ServiceAnalysis) error
}

// AnalysisStore combines reads and the transactional write.
type AnalysisStore interface {
	ServiceAnalysisRepository
	AnalysisRecorder
}

type serviceAnalysisRepository struct {
	pool *pgxpool.Pool
}

// NewServiceAnalysisRepository instantiates repository.
func NewServiceAnalysisRepository(pool *pgxpool.Pool) AnalysisStore {
	return &serviceAnalysisRepository{pool: pool}
}

func (r *serviceAnalysisRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.ServiceAnalysis, error) {
	if err := lookupID(requestID); err != nil {
		return nil, err
	}
	const query = `
        SELECT id, service_request_id, complexity_level, urgency_level, safety_advice, summary,
               risk_explanation, analyzed_at
        FROM service_analyses WHERE service_request_id=$1`
	var a domain.ServiceAnalysis
	if err := r.pool.QueryRow(ctx, query, requestID).Scan(
		&a.ID,
		&a.ServiceRequestID,
		&a.ComplexityLevel,
		&a.UrgencyLevel,
		&a.SafetyAdvice,
		&a.Summary,
		&a.RiskExplanation,
		&a.AnalyzedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *serviceAnalysisRepository) RecordAnalysis(ctx context.Context, req *domain.ServiceRequest, analysis *domain.ServiceAnalysis) (err error) {
	const insert = `
        INSERT INTO service_analyses (id, service_request_id, complexity_level, urgency_level,
            safety_advice, summary, risk_explanation, analyzed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (service_request_id) DO NOTHING`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin analysis tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	cmd, err := tx.Exec(ctx, insert,
		analysis.ID,
		req.ID(),
		analysis.ComplexityLevel,
		analysis.UrgencyLevel,
		analysis.SafetyAdvice,
		analysis.Summary,
		analysis.RiskExplanation,
		analysis.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis for %s: %w", req.ID(), err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAnalysisExists
	}
	if err = updateServiceRequest(ctx, tx, req); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit analysis tx: %w", err)
	}
	req.SetVersion(req.Version() + 1)
	return nil
}
