package tools

import (
	"fmt"
	"log"
	"sort"
	"sync"
)

// capabilityToolMap is the static mapping from capability tags to the tool
// names that serve them. Recommendations are filtered to registered tools.
var capabilityToolMap = map[string][]string{
	"web_search":       {"web_search", "duckduckgo_search"},
	"calculation":      {"calculator", "math_evaluator"},
	"data_analysis":    {"csv_processor", "json_parser"},
	"file_processing":  {"file_reader", "file_writer"},
	"communication":    {"http_request", "email_sender"},
	"scheduling":       {"datetime_tool", "calendar_tool"},
	"code_generation":  {"code_executor", "syntax_checker"},
	"summarization":    {"text_summarizer"},
	"text_analysis":    {"text_summarizer", "json_parser"},
	"time_management":  {"datetime_tool"},
	"information_gathering": {"web_search", "http_request"},
}

// ToolInfo is the catalog entry for one registered tool.
type ToolInfo struct {
	// Description explains what the tool does.
	Description string `json:"description"`
	// Parameters describes the tool's parameter contract.
	Parameters ParameterSpec `json:"parameters"`
	// Category is the group the tool was registered under.
	Category string `json:"category"`
}

// Registry maps tool names to capabilities and category tags.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	categories map[string][]string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		categories: make(map[string][]string),
	}
}

// Register adds a capability under a unique name.
// Returns ErrDuplicateTool when the name is already taken.
func (r *Registry) Register(name, description string, params ParameterSpec, category string, capability Capability) error {
	if category == "" {
		category = "general"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		Category:    category,
		capability:  capability,
	}
	r.categories[category] = append(r.categories[category], name)

	log.Printf("[registry] registered tool: %s in category: %s", name, category)
	return nil
}

// Lookup returns the tool registered under name.
// Returns ErrToolNotFound when the name is unknown.
func (r *Registry) Lookup(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool, nil
}

// Recommend returns tool names serving the given capability tags, in tag
// order, filtered to tools actually registered. Unregistered recommendations
// are silently dropped.
func (r *Registry) Recommend(capabilities []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var recommended []string
	seen := make(map[string]bool)
	for _, capability := range capabilities {
		for _, name := range capabilityToolMap[capability] {
			if _, registered := r.tools[name]; registered && !seen[name] {
				recommended = append(recommended, name)
				seen[name] = true
			}
		}
	}
	return recommended
}

// ListByCategory returns the tool names registered under a category.
// Unknown categories return an empty list.
func (r *Registry) ListByCategory(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.categories[category]))
	copy(names, r.categories[category])
	return names
}

// List returns the full tool catalog keyed by name.
func (r *Registry) List() map[string]ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog := make(map[string]ToolInfo, len(r.tools))
	for name, tool := range r.tools {
		catalog[name] = ToolInfo{
			Description: tool.Description,
			Parameters:  tool.Parameters,
			Category:    tool.Category,
		}
	}
	return catalog
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
