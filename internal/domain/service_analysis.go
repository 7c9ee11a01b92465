package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceAnalysis is the classifier's verdict on a request. One per request, never updated.
type ServiceAnalysis struct {
	ID               string
	ServiceRequestID string
	ComplexityLevel  int
	UrgencyLevel     int
	SafetyAdvice     *string
	Summary          *string
	RiskExplanation  *string
	AnalyzedAt       time.Time
}

// NewServiceAnalysisInput carries classifier output for a request.
type NewServiceAnalysisInput struct {
	ServiceRequestID string
	ComplexityLevel  int
	UrgencyLevel     int
	SafetyAdvice     string
	Summary          string
	RiskExplanation  string
}

// NewServiceAnalysis validates levels and stamps the analysis time. Blank text fields stay nil.
func NewServiceAnalysis(input NewServiceAnalysisInput) (*ServiceAnalysis, error) {
	if err := ValidateComplexity(input.ComplexityLevel); err != nil {
		return nil, err
	}
	if err := ValidateUrgency(input.UrgencyLevel); err != nil {
		return nil, err
	}
	return &ServiceAnalysis{
		ID:               uuid.NewString(),
		ServiceRequestID: input.ServiceRequestID,
		ComplexityLevel:  input.ComplexityLevel,
		UrgencyLevel:     input.UrgencyLevel,
		SafetyAdvice:     optionalText(input.SafetyAdvice),
		Summary:          optionalText(input.Summary),
		RiskExplanation:  optionalText(input.RiskExplanation),
		AnalyzedAt:       time.Now().UTC(),
	}, nil
}

// IsCritical reports urgency at or above CriticalUrgency.
func (a *ServiceAnalysis) IsCritical() bool {
	return a.UrgencyLevel >= CriticalUrgency
}

func optionalText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
