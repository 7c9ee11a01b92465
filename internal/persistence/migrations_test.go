package persistence

import (
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "0001_init.sql" {
		t.Fatalf("names = %v", names)
	}
	content, err := migrationFiles.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"service_requests", "service_analyses_request_unique", "agent_capabilities_unique", "version"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("initial migration missing %q", want)
		}
	}
}
