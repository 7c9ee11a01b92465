package matching

import (
	"errors"
	"testing"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

func agent(id string, active bool, caps ...domain.AgentCapability) *domain.ServiceAgent {
	return domain.RestoreServiceAgent(domain.ServiceAgentState{ID: id, FullName: "Agent " + id, IsActive: active, Capabilities: caps})
}

func capability(category string, max int) domain.AgentCapability {
	return domain.AgentCapability{ID: category + "-cap", CategoryID: category, MaxComplexity: max}
}

func intPtr(v int) *int { return &v }

func TestRankFiltersAndScores(t *testing.T) {
	input := Input{
		ServiceRequestID: "req-1",
		CategoryID:       "C",
		Complexity:       intPtr(3),
		Agents: []*domain.ServiceAgent{
			agent("a-exact", true, capability("C", 3)),
			agent("b-over", true, capability("C", 4)),
			agent("c-other-category", true, capability("D", 5)),
			agent("d-inactive", false, capability("C", 5)),
		},
	}

	results, err := Rank(input)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}

	want := []domain.MatchingResult{
		{ServiceRequestID: "req-1", AgentID: "a-exact", AgentName: "Agent a-exact", SupportedComplexity: 3, Score: 100, IsRecommended: true, Reason: ReasonPerfect},
		{ServiceRequestID: "req-1", AgentID: "b-over", AgentName: "Agent b-over", SupportedComplexity: 4, Score: 90, IsRecommended: true, Reason: ReasonSlight},
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestRankExcludesUnderqualified(t *testing.T) {
	results, err := Rank(Input{
		CategoryID: "C",
		Complexity: intPtr(4),
		Agents:     []*domain.ServiceAgent{agent("low", true, capability("C", 3))},
	})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestRankRequiresComplexity(t *testing.T) {
	results, err := Rank(Input{CategoryID: "C", Agents: []*domain.ServiceAgent{agent("a", true, capability("C", 5))}})
	if !errors.Is(err, ErrComplexityNotEvaluated) {
		t.Fatalf("err = %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}

func TestRankOrderingIsDeterministic(t *testing.T) {
	agents := []*domain.ServiceAgent{
		agent("z", true, capability("C", 5)),
		agent("m", true, capability("C", 2)),
		agent("b", true, capability("C", 2)),
		agent("k", true, capability("C", 3)),
	}
	results, err := Rank(Input{CategoryID: "C", Complexity: intPtr(1), Agents: agents})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	gotIDs := make([]string, 0, len(results))
	for _, r := range results {
		gotIDs = append(gotIDs, r.AgentID)
	}
	wantIDs := []string{"b", "m", "k", "z"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("order = %v, want %v", gotIDs, wantIDs)
		}
	}
	if results[3].Score != 60 || results[3].IsRecommended || results[3].Reason != ReasonSignificantly {
		t.Fatalf("unexpected tail result: %+v", results[3])
	}
	if results[2].Score != 80 || !results[2].IsRecommended {
		t.Fatalf("score 80 should be recommended: %+v", results[2])
	}
}

func TestInputForRequest(t *testing.T) {
	req, err := domain.NewServiceRequest(domain.NewServiceRequestInput{CustomerID: "c", CategoryID: "C", Description: "Socket sparks"})
	if err != nil {
		t.Fatalf("NewServiceRequest: %v", err)
	}
	if _, err := Rank(InputFor(req, nil)); !errors.Is(err, ErrComplexityNotEvaluated) {
		t.Fatalf("err = %v", err)
	}
	if err := req.MarkAsAnalyzed(1); err != nil {
		t.Fatal(err)
	}
	if err := req.Evaluate(2); err != nil {
		t.Fatal(err)
	}
	input := InputFor(req, nil)
	if input.Complexity == nil || *input.Complexity != 2 || input.CategoryID != "C" {
		t.Fatalf("input = %+v", input)
	}
}
