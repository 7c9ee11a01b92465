// Package matching ranks service agents against an evaluated request.
package matching

import (
	"errors"
	"sort"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// ErrComplexityNotEvaluated is returned when a request has no evaluated complexity yet.
var ErrComplexityNotEvaluated = errors.New("service request complexity has not been evaluated")

const (
	perfectScore       = 100
	penaltyPerLevel    = 10
	recommendThreshold = 80
)

const (
	ReasonPerfect       = "Perfect complexity match"
	ReasonSlight        = "Slight overqualified"
	ReasonSignificantly = "Significantly overqualified"
)

// Input is everything the scorer reads. Agents are a snapshot; the scorer does not mutate them.
type Input struct {
	ServiceRequestID string
	CategoryID       string
	Complexity       *int
	Agents           []*domain.ServiceAgent
}

// InputFor builds scorer input from a request aggregate.
func InputFor(req *domain.ServiceRequest, agents []*domain.ServiceAgent) Input {
	input := Input{
		ServiceRequestID: req.ID(),
		CategoryID:       req.CategoryID(),
		Agents:           agents,
	}
	if complexity, ok := req.Complexity(); ok {
		input.Complexity = &complexity
	}
	return input
}

// Rank returns eligible active agents, best score first. Ties are ordered by agent ID.
func Rank(input Input) ([]domain.MatchingResult, error) {
	if input.Complexity == nil {
		return nil, ErrComplexityNotEvaluated
	}
	required := *input.Complexity

	results := make([]domain.MatchingResult, 0, len(input.Agents))
	for _, agent := range input.Agents {
		if agent == nil || !agent.IsActive() {
			continue
		}
		capability, ok := agent.CapabilityFor(input.CategoryID)
		if !ok {
			continue
		}
		if capability.MaxComplexity < required {
			continue
		}
		diff := capability.MaxComplexity - required
		score := Score(diff)
		results = append(results, domain.MatchingResult{
			ServiceRequestID:    input.ServiceRequestID,
			AgentID:             agent.ID(),
			AgentName:           agent.FullName(),
			SupportedComplexity: capability.MaxComplexity,
			Score:               score,
			IsRecommended:       score >= recommendThreshold,
			Reason:              Reason(diff),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].AgentID < results[j].AgentID
	})
	return results, nil
}

// Score maps the over-qualification gap to a score.
func Score(diff int) float64 {
	return float64(perfectScore - diff*penaltyPerLevel)
}

// Reason explains a score in words.
func Reason(diff int) string {
	switch diff {
	case 0:
		return ReasonPerfect
	case 1:
		return ReasonSlight
	default:
		return ReasonSignificantly
	}
}

// DistanceKm is reserved for location-aware routing and always returns 0.
func DistanceKm(fromLat, fromLng, toLat, toLng float64) float64 {
	return 0
}
