package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// Lookups by ids that are not UUIDs never reach the pool, so a nil pool is enough here.
func TestLookupsRejectNonUUIDIDs(t *testing.T) {
	ctx := context.Background()
	requests := NewServiceRequestRepository(nil)
	analyses := NewServiceAnalysisRepository(nil)
	agents := NewServiceAgentRepository(nil)

	for _, id := range []string{"abc", "", "12345", "not-a-uuid-at-all", uuid.NewString() + "x"} {
		t.Run(id, func(t *testing.T) {
			if _, err := requests.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("requests.GetByID err = %v", err)
			}
			if _, err := analyses.GetByRequestID(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("analyses.GetByRequestID err = %v", err)
			}
			if _, err := agents.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("agents.GetByID err = %v", err)
			}
		})
	}
}

func TestLookupIDAcceptsUUIDs(t *testing.T) {
	if err := lookupID(uuid.NewString()); err != nil {
		t.Fatalf("lookupID: %v", err)
	}
}
