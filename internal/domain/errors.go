package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidStateTransition     = errors.New("invalid state transition")
	ErrInvalidDescription         = errors.New("description must be non-empty and within the length limit")
	ErrInvalidComplexity          = errors.New("complexity level must be between 1 and 5")
	ErrInvalidUrgency             = errors.New("urgency level must be between 1 and 5")
	ErrCancellationReasonRequired = errors.New("cancellation reason is required")
	ErrInvalidMoney               = errors.New("amount must be non-negative with a 3-letter currency")
	ErrProviderRequired           = errors.New("assigned provider is required")
	ErrAgentNameRequired          = errors.New("agent full name is required")
	ErrDuplicateCapability        = errors.New("agent already has a capability for this category")
	ErrCategoryRequired           = errors.New("category is required")
	ErrCustomerRequired           = errors.New("customer is required")
)

// TransitionError carries the state a rejected operation found and the states it needed.
type TransitionError struct {
	Operation string
	Current   ServiceStatus
	Required  []ServiceStatus
}

func (e *TransitionError) Error() string {
	required := make([]string, 0, len(e.Required))
	for _, status := range e.Required {
		required = append(required, string(status))
	}
	return fmt.Sprintf("operation %s not allowed from %s (requires %s)",
		e.Operation, e.Current, strings.Join(required, " or "))
}

// Is lets callers match with errors.Is(err, ErrInvalidStateTransition).
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}
