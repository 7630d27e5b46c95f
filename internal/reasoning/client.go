package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client implements Service against the Anthropic Messages API. Every call
// asks for a JSON-only response matching the corresponding result type.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	retry     RetryPolicy
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string
	// Model is the Claude model to use. Empty selects a default.
	Model string
	// MaxTokens caps the response size per call.
	MaxTokens int
	// Retry bounds retries around each API call.
	Retry RetryPolicy
}

// NewClient creates a reasoning client backed by the Anthropic API.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reasoning client requires an API key")
	}

	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &Client{
		inner:     anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
		retry:     cfg.Retry,
	}, nil
}

const analyzeSystemPrompt = `You are a task analyzer for an agent orchestration engine. Analyze the user's request and determine:
1. Task complexity (simple, moderate, complex)
2. Required agent types (default agents or need for dynamic agents)
3. Suggested agent roles and capabilities
4. Tools that might be needed

Default agents available:
- SummarizerAgent: Text summarization and key point extraction
- SearchAgent: Web search and information gathering
- CodingAgent: Code generation, review, and debugging
- SchedulerAgent: Task scheduling and time management

Respond with JSON only, using this structure:
{
    "complexity": "simple|moderate|complex",
    "suggested_agents": [
        {
            "name": "agent_name",
            "type": "default|dynamic",
            "role": "specific role description",
            "capabilities": ["capability1", "capability2"],
            "priority": "low|medium|high|urgent"
        }
    ],
    "required_tools": ["tool1", "tool2"],
    "estimated_duration": "time estimate"
}`

// AnalyzeTask implements Service.
func (c *Client) AnalyzeTask(ctx context.Context, input, taskContext string) (*TaskAnalysis, error) {
	userPrompt := "Task: " + input
	if taskContext != "" {
		userPrompt += "\nContext: " + taskContext
	}

	var analysis TaskAnalysis
	if err := c.completeJSON(ctx, "analyze_task", analyzeSystemPrompt, userPrompt, &analysis); err != nil {
		return nil, err
	}

	log.Printf("[reasoning] task analysis completed: %s complexity, %d agent(s)",
		analysis.Complexity, len(analysis.SuggestedAgents))
	return &analysis, nil
}

const planSystemTemplate = `%s

Available tools: %s

Your response should include:
1. Your reasoning process
2. Actions you want to take
3. Tools you need to use
4. Suggested next steps

Respond with JSON only:
{
    "reasoning": "your thought process",
    "planned_actions": ["action1", "action2"],
    "tools_needed": ["tool1", "tool2"],
    "confidence_level": 0.0,
    "next_steps": ["step1", "step2"]
}
confidence_level must be a number between 0 and 1.`

// PlanAgentAction implements Service.
func (c *Client) PlanAgentAction(ctx context.Context, prompt, input, taskContext string, availableTools []string) (*ActionPlan, error) {
	toolList := "None"
	if len(availableTools) > 0 {
		toolList = strings.Join(availableTools, ", ")
	}
	systemPrompt := fmt.Sprintf(planSystemTemplate, prompt, toolList)

	userPrompt := "Task Input: " + input
	if taskContext != "" {
		userPrompt += "\nContext: " + taskContext
	}

	var plan ActionPlan
	if err := c.completeJSON(ctx, "plan_agent_action", systemPrompt, userPrompt, &plan); err != nil {
		return nil, err
	}

	log.Printf("[reasoning] action plan completed: %d action(s), confidence %.2f",
		len(plan.PlannedActions), plan.ConfidenceLevel)
	return &plan, nil
}

const generateAgentSystemPrompt = `You are a dynamic agent generator for an agent orchestration engine. Create a specialized agent based on the provided specifications.

Generate a complete agent definition with:
1. Detailed role description
2. Specific capabilities and skills
3. A prompt template the agent will plan with
4. Preferred tools

Respond with JSON only:
{
    "name": "agent_name",
    "role": "detailed role description",
    "capabilities": ["specific_capability1", "specific_capability2"],
    "prompt_template": "detailed system prompt for the agent",
    "preferred_tools": ["tool1", "tool2"]
}`

// GenerateDynamicAgent implements Service.
func (c *Client) GenerateDynamicAgent(ctx context.Context, spec SuggestedAgent, taskContext string) (*AgentDefinition, error) {
	userPrompt := fmt.Sprintf(`Create an agent with these specifications:
Name: %s
Role: %s
Required Capabilities: %s
Priority: %s

Task Context: %s

Make this agent highly specialized for the specific task requirements.`,
		spec.Name, spec.Role, strings.Join(spec.Capabilities, ", "), spec.Priority, taskContext)

	var def AgentDefinition
	if err := c.completeJSON(ctx, "generate_dynamic_agent", generateAgentSystemPrompt, userPrompt, &def); err != nil {
		return nil, err
	}

	log.Printf("[reasoning] generated dynamic agent: %s", def.Name)
	return &def, nil
}

const synthesizeSystemPrompt = `You are a result synthesizer for an agent orchestration engine. Combine results from multiple agents into a comprehensive, coherent response.

Create a final response that:
1. Addresses the original user request completely
2. Integrates insights from all agents
3. Provides clear, actionable information

Respond with JSON only:
{
    "final_answer": "comprehensive response to user",
    "key_insights": ["insight1", "insight2"],
    "confidence_score": 0.0
}
confidence_score must be a number between 0 and 1.`

// Synthesize implements Service.
func (c *Client) Synthesize(ctx context.Context, agentResults []map[string]any, originalInput string) (*Synthesis, error) {
	resultsJSON, err := json.MarshalIndent(agentResults, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal agent results: %w", err)
	}

	userPrompt := fmt.Sprintf(`Original Task: %s

Agent Results:
%s

Synthesize these results into a comprehensive response.`, originalInput, string(resultsJSON))

	var synthesis Synthesis
	if err := c.completeJSON(ctx, "synthesize", synthesizeSystemPrompt, userPrompt, &synthesis); err != nil {
		return nil, err
	}

	log.Printf("[reasoning] synthesis completed with confidence %.2f", synthesis.ConfidenceScore)
	return &synthesis, nil
}

// completeJSON makes one retried API call and unmarshals the JSON response.
func (c *Client) completeJSON(ctx context.Context, op, systemPrompt, userPrompt string, out any) error {
	return c.retry.Do(ctx, op, func() error {
		resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			return err
		}

		var text string
		for _, block := range resp.Content {
			if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
				text += variant.Text
			}
		}

		payload := extractJSON(text)
		if payload == "" {
			return fmt.Errorf("%s: no JSON object in response", op)
		}

		if err := json.Unmarshal([]byte(payload), out); err != nil {
			return fmt.Errorf("%s: parse response: %w", op, err)
		}
		return nil
	})
}

// extractJSON pulls the outermost JSON object out of a response that may be
// wrapped in prose or a code fence.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
