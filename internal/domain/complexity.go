package domain

const (
	MinLevel = 1
	MaxLevel = 5

	// CriticalUrgency is the lowest urgency level treated as critical.
	CriticalUrgency = 4
)

// ValidateComplexity checks a complexity level is within [MinLevel, MaxLevel].
func ValidateComplexity(level int) error {
	if level < MinLevel || level > MaxLevel {
		return ErrInvalidComplexity
	}
	return nil
}

// ValidateUrgency checks an urgency level is within [MinLevel, MaxLevel].
func ValidateUrgency(level int) error {
	if level < MinLevel || level > MaxLevel {
		return ErrInvalidUrgency
	}
	return nil
}

// ClampLevel forces level into [MinLevel, MaxLevel].
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
