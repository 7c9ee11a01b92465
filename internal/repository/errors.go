package repository

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict is returned when a conditional write lost a race.
	ErrVersionConflict = errors.New("repository: version conflict")
	// ErrAnalysisExists is returned when a request already has an analysis.
	ErrAnalysisExists = errors.New("repository: analysis already recorded")
)

// lookupID rejects ids that cannot name a row in a UUID column. Such ids are
// reported as missing rather than sent to Postgres, which would fail to encode them.
func lookupID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return nil
}
