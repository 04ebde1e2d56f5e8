package tools

import (
	"fmt"
	"sort"
)

// Registry maps tool names to tools.
// It is built once and never mutated, so lookups need no locking.
type Registry struct {
	tools map[string]Tool
	names []string
}

// NewRegistry builds a registry, rejecting empty or duplicate names
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}

	for _, tool := range tools {
		if tool == nil {
			return nil, fmt.Errorf("nil tool")
		}
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool %s already exists", name)
		}
		r.tools[name] = tool
		r.names = append(r.names, name)
	}

	sort.Strings(r.names)
	return r, nil
}

// Get gets a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all tools ordered by name
func (r *Registry) List() []Tool {
	tools := make([]Tool, 0, len(r.names))
	for _, name := range r.names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.names)
}

// Without returns a new registry lacking the named tools.
// Unknown names are reported as an error so typos in configuration surface early.
func (r *Registry) Without(names ...string) (*Registry, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.tools[name]; !ok {
			return nil, fmt.Errorf("unknown tool %s", name)
		}
		drop[name] = true
	}

	kept := make([]Tool, 0, len(r.names))
	for _, tool := range r.List() {
		if !drop[tool.Name()] {
			kept = append(kept, tool)
		}
	}
	return NewRegistry(kept...)
}
