// Package agent drives the reasoning and invoking cycle of a chat
// request: it feeds the model a capability catalog, executes the tool
// calls the model requests, and streams the final answer tokens.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyhallhq/studyhall/plugin/ai"
)

// Capability is a callable operation exposed to the model.
type Capability interface {
	// Name returns the operation identifier used in dispatch.
	Name() string
	// Description tells the model when to use this capability.
	Description() string
	// Parameters returns the JSON Schema of the arguments object.
	Parameters() map[string]any
	// Invoke executes the capability with raw JSON arguments.
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry is an ordered dispatch table keyed by capability name.
// Registration order is preserved; duplicate names are rejected so a
// name always dispatches to exactly one operation.
type Registry struct {
	names  []string
	byName map[string]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Capability)}
}

// Register adds a capability. Duplicate names return an error.
func (r *Registry) Register(c Capability) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("capability has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("capability already registered: %s", name)
	}
	r.byName[name] = c
	r.names = append(r.names, name)
	return nil
}

// Lookup returns the capability for a name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.names)
}

// Names returns capability names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns capabilities in registration order.
func (r *Registry) All() []Capability {
	out := make([]Capability, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Definitions returns the tool catalog handed to the model.
func (r *Registry) Definitions() []ai.ToolDefinition {
	defs := make([]ai.ToolDefinition, 0, len(r.names))
	for _, name := range r.names {
		c := r.byName[name]
		defs = append(defs, ai.ToolDefinition{
			Name:        c.Name(),
			Description: c.Description(),
			Parameters:  c.Parameters(),
		})
	}
	return defs
}

// funcCapability adapts a plain function into a Capability.
type funcCapability struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args json.RawMessage) (string, error)
}

// NewCapability wraps a function as a Capability.
func NewCapability(name, description string, parameters map[string]any, fn func(ctx context.Context, args json.RawMessage) (string, error)) Capability {
	return &funcCapability{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

func (c *funcCapability) Name() string               { return c.name }
func (c *funcCapability) Description() string        { return c.description }
func (c *funcCapability) Parameters() map[string]any { return c.parameters }

func (c *funcCapability) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	return c.fn(ctx, args)
}

// NoParams is the schema for capabilities that take no arguments.
func NoParams() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// ObjectParams builds an object schema from property definitions and a
// required list.
func ObjectParams(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
