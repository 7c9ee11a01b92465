package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/repository/memory"
	"github.com/spec-kit/dispatch-service/internal/service"
)

func TestParseCapability(t *testing.T) {
	cases := []struct {
		raw      string
		category string
		level    int
		wantErr  bool
	}{
		{raw: "cat-electric:4", category: "cat-electric", level: 4},
		{raw: " cat-roof : 2", category: "cat-roof", level: 2},
		{raw: "ns:cat:3", category: "ns:cat", level: 3},
		{raw: "cat-electric:9", category: "cat-electric", level: 9},
		{raw: "cat-electric", wantErr: true},
		{raw: ":3", wantErr: true},
		{raw: "cat-electric:", wantErr: true},
		{raw: "cat-electric:high", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := parseCapability(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.CategoryID != tc.category || got.MaxComplexity != tc.level {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestSeedRosterCreatesAgentsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	doc := `agents:
  - name: Dana Reyes
    capabilities:
      - category: cat-electric
        maxComplexity: 4
  - name: Sam Ortiz
    active: false
    capabilities:
      - category: cat-plumbing
        maxComplexity: 2
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	db := memory.New()
	agents := service.NewAgentService(db.Agents(), nil)
	cfg := config.RulesConfig{RosterPath: path}
	for i := 0; i < 2; i++ {
		if err := seedRoster(ctx, cfg, agents, zap.NewNop()); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	all, err := db.Agents().List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("agents = %d, want 2", len(all))
	}
	active, err := db.Agents().ListActiveWithCapabilities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].FullName() != "Dana Reyes" {
		t.Fatalf("active = %+v", active)
	}
	if capability, ok := active[0].CapabilityFor("cat-electric"); !ok || capability.MaxComplexity != 4 {
		t.Fatalf("capability = %+v, %v", capability, ok)
	}
}

func TestSeedRosterRejectsInvalidCapability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	doc := "agents:\n  - name: Bad Level\n    capabilities:\n      - category: cat-electric\n        maxComplexity: 8\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	db := memory.New()
	err := seedRoster(context.Background(), config.RulesConfig{RosterPath: path}, service.NewAgentService(db.Agents(), nil), zap.NewNop())
	if err == nil {
		t.Fatal("expected invalid complexity to fail the seed")
	}
	if all, _ := db.Agents().List(context.Background()); len(all) != 0 {
		t.Fatalf("agents stored despite failure: %d", len(all))
	}
}

func TestSeedRosterWithoutPath(t *testing.T) {
	db := memory.New()
	if err := seedRoster(context.Background(), config.RulesConfig{}, service.NewAgentService(db.Agents(), nil), zap.NewNop()); err != nil {
		t.Fatal(err)
	}
}
