package tools

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned by Run when no tool matches the name.
var ErrToolNotFound = errors.New("tool not found")

// Manager is the name-to-tool registry. It is built once at startup and
// immutable afterwards; registration order is preserved so the tool
// prompt renders deterministically.
type Manager struct {
	tools map[string]Tool
	order []string
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. A tool with a duplicate name is ignored; the
// first registration wins.
func (m *Manager) Register(tool Tool) {
	if _, exists := m.tools[tool.Name()]; exists {
		return
	}
	m.tools[tool.Name()] = tool
	m.order = append(m.order, tool.Name())
}

// Has reports whether a tool with the given name is registered.
func (m *Manager) Has(name string) bool {
	_, ok := m.tools[name]
	return ok
}

// List returns all registered tools in registration order.
func (m *Manager) List() []Tool {
	ts := make([]Tool, 0, len(m.order))
	for _, name := range m.order {
		ts = append(ts, m.tools[name])
	}
	return ts
}

// Run dispatches input to the named tool.
func (m *Manager) Run(name, input string) (string, error) {
	tool, ok := m.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Run(input)
}
