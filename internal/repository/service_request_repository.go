package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// ServiceRequestRepository persists request aggregates. Save is conditional on
// the version the aggregate was loaded with and advances it on success.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListAwaitingAnalysis(ctx context.Context, limit int) ([]*domain.ServiceRequest, error)
	Save(ctx context.Context, req *domain.ServiceRequest) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type serviceRequestRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(pool *pgxpool.Pool) ServiceRequestRepository {
	return &serviceRequestRepository{pool: pool}
}

const serviceRequestColumns = `id, customer_id, category_id, description, address_text, complexity,
       suggested_complexity, status, assigned_provider_id, estimated_cost_amount,
       estimated_cost_currency, cancellation_reason, created_at, updated_at, version`

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (id, customer_id, category_id, description, address_text, complexity,
            suggested_complexity, status, assigned_provider_id, estimated_cost_amount,
            estimated_cost_currency, cancellation_reason, created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,1)`
	s := req.Snapshot()
	amount, currency := costColumns(s.EstimatedCost)
	if _, err := r.pool.Exec(ctx, query,
		s.ID,
		s.CustomerID,
		s.CategoryID,
		s.Description,
		s.AddressText,
		s.Complexity,
		s.SuggestedComplexity,
		s.Status,
		s.AssignedProviderID,
		amount,
		currency,
		s.CancellationReason,
		s.CreatedAt,
		s.UpdatedAt,
	); err != nil {
		return err
	}
	req.SetVersion(1)
	return nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if err := lookupID(id); err != nil {
		return nil, err
	}
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id=$1`
	req, err := scanServiceRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (r *serviceRequestRepository) ListAwaitingAnalysis(ctx context.Context, limit int) ([]*domain.ServiceRequest, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + serviceRequestColumns + `
        FROM service_requests WHERE status=$1
        ORDER BY created_at ASC, id ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, domain.StatusAwaitingAnalysis, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ServiceRequest
	for rows.Next() {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (r *serviceRequestRepository) Save(ctx context.Context, req *domain.ServiceRequest) error {
	if err := updateServiceRequest(ctx, r.pool, req); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return r.classifyMiss(ctx, req.ID())
		}
		return err
	}
	req.SetVersion(req.Version() + 1)
	return nil
}

// classifyMiss distinguishes a deleted or unknown row from a stale version.
func (r *serviceRequestRepository) classifyMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM service_requests WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// updateServiceRequest writes the mutable columns if the stored version still matches.
func updateServiceRequest(ctx context.Context, db execer, req *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET description=$1, complexity=$2, status=$3, assigned_provider_id=$4,
            estimated_cost_amount=$5, estimated_cost_currency=$6, cancellation_reason=$7,
            updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	s := req.Snapshot()
	amount, currency := costColumns(s.EstimatedCost)
	cmd, err := db.Exec(ctx, query,
		s.Description,
		s.Complexity,
		s.Status,
		s.AssignedProviderID,
		amount,
		currency,
		s.CancellationReason,
		s.UpdatedAt,
		s.ID,
		s.Version,
	)
	if err != nil {
		return fmt.Errorf("update service request %s: %w", s.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func scanServiceRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var (
		s        domain.ServiceRequestState
		amount   *float64
		currency *string
	)
	if err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.CategoryID,
		&s.Description,
		&s.AddressText,
		&s.Complexity,
		&s.SuggestedComplexity,
		&s.Status,
		&s.AssignedProviderID,
		&amount,
		&currency,
		&s.CancellationReason,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	); err != nil {
		return nil, err
	}
	if amount != nil && currency != nil {
		s.EstimatedCost = &domain.Money{Amount: *amount, Currency: *currency}
	}
	return domain.RestoreServiceRequest(s), nil
}

func costColumns(cost *domain.Money) (*float64, *string) {
	if cost == nil {
		return nil, nil
	}
	amount, currency := cost.Amount, cost.Currency
	return &amount, &currency
}
