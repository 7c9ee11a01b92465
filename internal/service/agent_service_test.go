package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/spec-kit/dispatch-service/internal/repository/memory"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util/errorutil"
)

func TestRegisterAgentValidation(t *testing.T) {
	agents := NewAgentService(memory.New().Agents(), nil)
	cases := []struct {
		name  string
		input RegisterAgentInput
	}{
		{"blank name", RegisterAgentInput{FullName: "  "}},
		{"complexity too high", RegisterAgentInput{FullName: "Ada", Capabilities: []CapabilityInput{{CategoryID: "cat-electric", MaxComplexity: 6}}}},
		{"complexity zero", RegisterAgentInput{FullName: "Ada", Capabilities: []CapabilityInput{{CategoryID: "cat-electric"}}}},
		{"blank category", RegisterAgentInput{FullName: "Ada", Capabilities: []CapabilityInput{{CategoryID: " ", MaxComplexity: 2}}}},
		{"duplicate category", RegisterAgentInput{FullName: "Ada", Capabilities: []CapabilityInput{
			{CategoryID: "cat-electric", MaxComplexity: 2},
			{CategoryID: "cat-electric", MaxComplexity: 4},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := agents.RegisterAgent(context.Background(), tc.input)
			requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
		})
	}
	all, err := agents.ListAgents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected agents were stored: %d", len(all))
	}
}

func TestRegisteredAgentIsMatchedAndAssignable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	agents := NewAgentService(f.db.Agents(), nil)
	agent, err := agents.RegisterAgent(ctx, RegisterAgentInput{
		FullName:     "Grace",
		Capabilities: []CapabilityInput{{CategoryID: "cat-electric", MaxComplexity: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}

	req := f.create(t)
	f.analyze(t, req.ID(), 2)
	if _, err := f.requests.Evaluate(ctx, staff, req.ID(), 2); err != nil {
		t.Fatal(err)
	}
	results, err := f.matching.MatchAgents(ctx, staff, req.ID())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].AgentID != agent.ID() {
		t.Fatalf("results = %+v", results)
	}
	if _, err := f.requests.AssignProvider(ctx, staff, req.ID(), AssignInput{AgentID: agent.ID(), Amount: 80, Currency: "usd"}); err != nil {
		t.Fatalf("AssignProvider: %v", err)
	}
}

func TestAgentCapabilityAndDeactivation(t *testing.T) {
	ctx := context.Background()
	agents := NewAgentService(memory.New().Agents(), nil)
	agent, err := agents.RegisterAgent(ctx, RegisterAgentInput{FullName: "Linus"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := agents.AddCapability(ctx, agent.ID(), CapabilityInput{CategoryID: "cat-plumbing", MaxComplexity: 4}); err != nil {
		t.Fatal(err)
	}
	_, err = agents.AddCapability(ctx, agent.ID(), CapabilityInput{CategoryID: "cat-plumbing", MaxComplexity: 2})
	requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	_, err = agents.AddCapability(ctx, agent.ID(), CapabilityInput{CategoryID: "cat-roof", MaxComplexity: 9})
	requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	_, err = agents.AddCapability(ctx, "missing", CapabilityInput{CategoryID: "cat-roof", MaxComplexity: 2})
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	if _, err := agents.Deactivate(ctx, agent.ID()); err != nil {
		t.Fatal(err)
	}
	stored, err := agents.GetAgent(ctx, agent.ID())
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsActive() {
		t.Fatal("agent still active")
	}
	capabilities := stored.Capabilities()
	if len(capabilities) != 1 || capabilities[0].CategoryID != "cat-plumbing" || capabilities[0].MaxComplexity != 4 {
		t.Fatalf("capabilities = %+v", capabilities)
	}
}

func TestImportRosterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	agents := NewAgentService(memory.New().Agents(), nil)
	entries := []RegisterAgentInput{
		{FullName: "Ada", Capabilities: []CapabilityInput{{CategoryID: "cat-electric", MaxComplexity: 3}}},
		{FullName: "Retired", Inactive: true},
	}

	report, err := agents.ImportRoster(ctx, entries)
	if err != nil {
		t.Fatal(err)
	}
	if report != (ImportReport{Created: 2}) {
		t.Fatalf("first import = %+v", report)
	}
	entries[0].FullName = " ada "
	report, err = agents.ImportRoster(ctx, entries)
	if err != nil {
		t.Fatal(err)
	}
	if report != (ImportReport{Skipped: 2}) {
		t.Fatalf("second import = %+v", report)
	}

	all, err := agents.ListAgents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	active := 0
	for _, agent := range all {
		if agent.IsActive() {
			active++
		}
	}
	if len(all) != 2 || active != 1 {
		t.Fatalf("agents = %d, active = %d", len(all), active)
	}

	_, err = agents.ImportRoster(ctx, []RegisterAgentInput{{FullName: "Broken", Capabilities: []CapabilityInput{{CategoryID: "x", MaxComplexity: 0}}}})
	requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
}
