package service

import (
	"context"
	"errors"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/matching"
	"github.com/spec-kit/dispatch-service/internal/repository"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util/errorutil"
)

var validationErrors = []error{
	domain.ErrInvalidDescription,
	domain.ErrInvalidComplexity,
	domain.ErrInvalidUrgency,
	domain.ErrCancellationReasonRequired,
	domain.ErrInvalidMoney,
	domain.ErrProviderRequired,
	domain.ErrAgentNameRequired,
	domain.ErrDuplicateCapability,
	domain.ErrCategoryRequired,
	domain.ErrCustomerRequired,
}

// mapError converts domain and repository errors into API-facing DomainErrors.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	var transition *domain.TransitionError
	if errors.As(err, &transition) {
		required := make([]string, 0, len(transition.Required))
		for _, status := range transition.Required {
			required = append(required, string(status))
		}
		return apperrors.NewInvalidTransition(err, map[string]any{
			"operation": transition.Operation,
			"current":   string(transition.Current),
			"required":  required,
		})
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return apperrors.WrapValidation(err, nil)
		}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified concurrently; reload and retry", nil)
	case errors.Is(err, repository.ErrAnalysisExists):
		return apperrors.NewConflict("analysis already recorded", nil)
	case errors.Is(err, matching.ErrComplexityNotEvaluated):
		return apperrors.NewPreconditionFailed(err, map[string]any{"required": "Evaluate"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewDomainError("TIMEOUT", "request timed out", 504, nil)
	default:
		return apperrors.NewInternalError(err)
	}
}
