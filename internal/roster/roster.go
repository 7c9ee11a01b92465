// Package roster reads the YAML agent roster used to seed service agents.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Capability is one category an agent covers, up to MaxComplexity.
type Capability struct {
	Category      string `yaml:"category"`
	MaxComplexity int    `yaml:"maxComplexity"`
}

// Agent is one roster entry.
type Agent struct {
	Name         string       `yaml:"name"`
	Active       *bool        `yaml:"active"`
	Capabilities []Capability `yaml:"capabilities"`
}

// IsActive reports the entry's active flag; entries are active unless stated otherwise.
func (a Agent) IsActive() bool {
	return a.Active == nil || *a.Active
}

type document struct {
	Agents []Agent `yaml:"agents"`
}

// Load reads a roster file. An empty path yields an empty roster.
func Load(path string) ([]Agent, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a roster document. Field-level validation is left to the agent
// aggregate; Parse only rejects unknown keys and duplicate names.
func Parse(data []byte) ([]Agent, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Agents))
	for i, agent := range doc.Agents {
		key := strings.ToLower(strings.TrimSpace(agent.Name))
		if _, dup := seen[key]; dup && key != "" {
			return nil, fmt.Errorf("roster entry %d: duplicate agent %q", i, agent.Name)
		}
		seen[key] = struct{}{}
	}
	return doc.Agents, nil
}
