package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// InMemoryCatalog is an in-process catalog for local/dev use.
type InMemoryCatalog struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func NewInMemoryCatalog(agents ...Agent) *InMemoryCatalog {
	c := &InMemoryCatalog{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		c.agents[a.ID] = a
	}
	return c
}

type agentsFile struct {
	Agents []Agent `yaml:"agents"`
}

// LoadFile reads a YAML document of the form `agents: [...]`.
func LoadFile(path string) (*InMemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	return parseAgents(data)
}

func parseAgents(data []byte) (*InMemoryCatalog, error) {
	var doc agentsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse agents file: %w", err)
	}
	for i, a := range doc.Agents {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("agents[%d]: id is required", i)
		}
	}
	return NewInMemoryCatalog(doc.Agents...), nil
}

func (c *InMemoryCatalog) Get(_ context.Context, id string) (Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.agents[id]
	if !ok {
		return Agent{}, fmt.Errorf("agent %q: %w", id, ErrNotFound)
	}
	return a, nil
}

func (c *InMemoryCatalog) List(_ context.Context) ([]Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Agent, 0, len(c.agents))
	for _, a := range c.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *InMemoryCatalog) Close() error { return nil }
