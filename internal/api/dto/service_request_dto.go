package dto

import (
	"time"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// CreateServiceRequest payload.
type CreateServiceRequest struct {
	CategoryID          string  `json:"category_id"`
	Description         string  `json:"description"`
	AddressText         *string `json:"address_text"`
	SuggestedComplexity *int    `json:"suggested_complexity"`
}

// UpdateServiceRequest payload.
type UpdateServiceRequest struct {
	Description string `json:"description"`
}

// EvaluateRequest payload.
type EvaluateRequest struct {
	Complexity int `json:"complexity"`
}

// AssignRequest payload.
type AssignRequest struct {
	AgentID  string  `json:"agent_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CancelRequest payload.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// MoneyResponse represents an amount in a currency.
type MoneyResponse struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ServiceRequestResponse is the public view of a request.
type ServiceRequestResponse struct {
	ID                  string               `json:"id"`
	CustomerID          string               `json:"customer_id"`
	CategoryID          string               `json:"category_id"`
	Description         string               `json:"description"`
	AddressText         *string              `json:"address_text,omitempty"`
	Status              domain.ServiceStatus `json:"status"`
	Complexity          *int                 `json:"complexity"`
	SuggestedComplexity *int                 `json:"suggested_complexity,omitempty"`
	AssignedProviderID  *string              `json:"assigned_provider_id"`
	EstimatedCost       *MoneyResponse       `json:"estimated_cost"`
	CancellationReason  *string              `json:"cancellation_reason,omitempty"`
	Version             int64                `json:"version"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ServiceAnalysisResponse is the public view of a classifier verdict.
type ServiceAnalysisResponse struct {
	ID               string    `json:"id"`
	ServiceRequestID string    `json:"service_request_id"`
	ComplexityLevel  int       `json:"complexity_level"`
	UrgencyLevel     int       `json:"urgency_level"`
	IsCritical       bool      `json:"is_critical"`
	SafetyAdvice     *string   `json:"safety_advice"`
	Summary          *string   `json:"summary"`
	RiskExplanation  *string   `json:"risk_explanation"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
}

// MatchingResultResponse ranks one agent.
type MatchingResultResponse struct {
	AgentID             string  `json:"agent_id"`
	AgentName           string  `json:"agent_name"`
	SupportedComplexity int     `json:"supported_complexity"`
	Score               float64 `json:"score"`
	IsRecommended       bool    `json:"is_recommended"`
	Reason              string  `json:"reason"`
}

// NewServiceRequestResponse maps the aggregate to its response.
func NewServiceRequestResponse(req *domain.ServiceRequest) ServiceRequestResponse {
	s := req.Snapshot()
	resp := ServiceRequestResponse{
		ID:                  s.ID,
		CustomerID:          s.CustomerID,
		CategoryID:          s.CategoryID,
		Description:         s.Description,
		AddressText:         s.AddressText,
		Status:              s.Status,
		Complexity:          s.Complexity,
		SuggestedComplexity: s.SuggestedComplexity,
		AssignedProviderID:  s.AssignedProviderID,
		CancellationReason:  s.CancellationReason,
		Version:             s.Version,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if s.EstimatedCost != nil {
		resp.EstimatedCost = &MoneyResponse{Amount: s.EstimatedCost.Amount, Currency: s.EstimatedCost.Currency}
	}
	return resp
}

// NewServiceAnalysisResponse maps an analysis to its response.
func NewServiceAnalysisResponse(a *domain.ServiceAnalysis) ServiceAnalysisResponse {
	return ServiceAnalysisResponse{
		ID:               a.ID,
		ServiceRequestID: a.ServiceRequestID,
		ComplexityLevel:  a.ComplexityLevel,
		UrgencyLevel:     a.UrgencyLevel,
		IsCritical:       a.IsCritical(),
		SafetyAdvice:     a.SafetyAdvice,
		Summary:          a.Summary,
		RiskExplanation:  a.RiskExplanation,
		AnalyzedAt:       a.AnalyzedAt,
	}
}

// NewMatchingResultResponses maps ranked results, keeping order.
func NewMatchingResultResponses(results []domain.MatchingResult) []MatchingResultResponse {
	out := make([]MatchingResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, MatchingResultResponse{
			AgentID:             r.AgentID,
			AgentName:           r.AgentName,
			SupportedComplexity: r.SupportedComplexity,
			Score:               r.Score,
			IsRecommended:       r.IsRecommended,
			Reason:              r.Reason,
		})
	}
	return out
}
