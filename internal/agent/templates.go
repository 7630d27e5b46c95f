// Package agent creates and runs worker agents. Default agents come from a
// fixed template catalog; dynamic agents are generated per task by the
// reasoning service. An agent run always produces a result map, never an
// error, so one bad agent cannot take down a task.
package agent

import "github.com/ShayCichocki/euna/pkg/models"

// Template describes a reusable default agent configuration.
type Template struct {
	// Name is the agent type name, e.g. SummarizerAgent.
	Name string
	// Role is a short description of what the agent is for.
	Role string
	// Capabilities tag what the agent can do, used for tool recommendation.
	Capabilities []string
	// Priority orders the agent relative to its siblings.
	Priority models.TaskPriority
	// PromptTemplate seeds the agent's planning prompt.
	PromptTemplate string
	// PreferredTools are tried first when the agent plans tool usage.
	PreferredTools []string
}

// defaultTemplates is the built-in agent catalog, keyed by agent name.
var defaultTemplates = map[string]Template{
	"SummarizerAgent": {
		Name:           "SummarizerAgent",
		Role:           "condenses documents and long text into short summaries",
		Capabilities:   []string{"summarization", "text_analysis"},
		Priority:       models.PriorityMedium,
		PromptTemplate: "You are a summarization agent. Read the provided text and produce a concise, faithful summary.",
		PreferredTools: []string{"text_summarizer"},
	},
	"SearchAgent": {
		Name:           "SearchAgent",
		Role:           "finds information on the web and reports findings",
		Capabilities:   []string{"web_search", "information_gathering"},
		Priority:       models.PriorityMedium,
		PromptTemplate: "You are a research agent. Search for relevant information and report what you find with sources.",
		PreferredTools: []string{"web_search", "http_request"},
	},
	"CodingAgent": {
		Name:           "CodingAgent",
		Role:           "analyzes code, computes results, and processes structured data",
		Capabilities:   []string{"code_generation", "calculation", "data_analysis"},
		Priority:       models.PriorityHigh,
		PromptTemplate: "You are a coding agent. Analyze the request, compute what is needed, and explain your work.",
		PreferredTools: []string{"calculator", "json_parser", "file_reader"},
	},
	"SchedulerAgent": {
		Name:           "SchedulerAgent",
		Role:           "handles dates, deadlines, and time arithmetic",
		Capabilities:   []string{"scheduling", "time_management"},
		Priority:       models.PriorityMedium,
		PromptTemplate: "You are a scheduling agent. Work out dates, deadlines, and reminders for the request.",
		PreferredTools: []string{"datetime_tool"},
	},
}

// genericTemplate is used when no named template matches.
var genericTemplate = Template{
	Name:           "GeneralAgent",
	Role:           "handles general requests with whatever tools apply",
	Capabilities:   []string{"web_search", "information_gathering", "summarization"},
	Priority:       models.PriorityMedium,
	PromptTemplate: "You are a general-purpose agent. Address the request directly using the tools available to you.",
	PreferredTools: []string{"web_search", "text_summarizer", "datetime_tool"},
}

// TemplateFor returns the template registered under name, falling back to
// the generic template for unknown names.
func TemplateFor(name string) Template {
	if tpl, ok := defaultTemplates[name]; ok {
		return tpl
	}
	return genericTemplate
}

// TemplateNames returns the names of the built-in templates.
func TemplateNames() []string {
	names := make([]string, 0, len(defaultTemplates))
	for name := range defaultTemplates {
		names = append(names, name)
	}
	return names
}
