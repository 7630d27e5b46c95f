// Package tools provides the tool capability registry and the execution
// engine that runs single invocations, sequential chains, and parallel
// batches on behalf of agents.
package tools

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateTool is returned when registering a name that already exists.
var ErrDuplicateTool = errors.New("tool already registered")

// ErrToolNotFound is returned when looking up an unknown tool name.
var ErrToolNotFound = errors.New("tool not found")

// ErrMissingParameter is returned when a required parameter is absent.
var ErrMissingParameter = errors.New("missing required parameter")

// Capability is a named, independently invokable unit of functionality.
// Side-effect policy is owned by the capability itself.
type Capability interface {
	Invoke(ctx context.Context, params map[string]any) (any, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, params map[string]any) (any, error)

// Invoke implements Capability.
func (f CapabilityFunc) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return f(ctx, params)
}

// ParameterSpec describes a tool's parameters for validation and discovery.
type ParameterSpec struct {
	// Required lists parameter names that must be present.
	Required []string `json:"required,omitempty"`
	// Optional lists parameter names that may be present.
	Optional []string `json:"optional,omitempty"`
	// Descriptions maps parameter names to human-readable descriptions.
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// Tool pairs a capability with its registration metadata.
type Tool struct {
	// Name is the unique registered identifier.
	Name string
	// Description explains what the tool does.
	Description string
	// Parameters describes the tool's parameter contract.
	Parameters ParameterSpec
	// Category groups the tool for discovery.
	Category string

	capability Capability
}

// ValidateParams checks that every required parameter is present.
func (t *Tool) ValidateParams(params map[string]any) error {
	for _, name := range t.Parameters.Required {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingParameter, name)
		}
	}
	return nil
}

// Invoke validates nothing; callers validate first. It runs the capability.
func (t *Tool) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return t.capability.Invoke(ctx, params)
}
