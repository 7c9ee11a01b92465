// Package classifier turns a free-text request description into complexity,
// urgency and safety guidance using a language model, and never fails outward.
package classifier

import "github.com/spec-kit/dispatch-service/internal/domain"

// Result is the normalized classifier verdict.
type Result struct {
	Summary                  string
	RiskExplanation          string
	SafetyAdvice             string
	SelectedLevelReason      string
	RequiredSkillLevel       int
	MinExperienceYears       int
	RequiresCertification    bool
	RequiresSeniorTechnician bool
	RiskWeight               float64
	UrgencyLevel             int
	Fallback                 bool
}

// FallbackResult is returned whenever the model output cannot be used.
func FallbackResult() Result {
	return Result{
		RequiredSkillLevel: domain.MinLevel,
		UrgencyLevel:       domain.MinLevel,
		Fallback:           true,
	}
}

// IsCritical reports whether the verdict routes to urgent dispatch.
func (r Result) IsCritical() bool {
	return r.UrgencyLevel >= domain.CriticalUrgency
}
