package agent

import (
	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/tools"
)

// successThreshold is the minimum validation score for a cycle to count as
// successful.
const successThreshold = 0.6

// ValidationResult scores one plan-execute cycle.
type ValidationResult struct {
	// Score is the weighted quality score in [0,1].
	Score float64 `json:"score"`
	// Success is true when Score meets the threshold.
	Success bool `json:"success"`
	// ToolSuccessRatio is successful tool calls over attempted calls.
	ToolSuccessRatio float64 `json:"tool_success_ratio"`
}

// Validate scores an action plan against its tool results. Tool outcomes
// carry the most weight, then plan confidence, then plan substance.
func Validate(plan *reasoning.ActionPlan, toolResults []tools.ExecutionResult) ValidationResult {
	score := 0.0
	ratio := 0.0

	if len(toolResults) > 0 {
		succeeded := 0
		for _, result := range toolResults {
			if result.Success {
				succeeded++
			}
		}
		ratio = float64(succeeded) / float64(len(toolResults))
		score += ratio * 0.4
	} else {
		// A plan that needed no tools is not penalized to zero.
		score += 0.2
	}

	switch {
	case plan.ConfidenceLevel >= 0.8:
		score += 0.3
	case plan.ConfidenceLevel >= 0.5:
		score += 0.2
	default:
		score += 0.1
	}

	if len(plan.Reasoning) > 50 {
		score += 0.2
	}
	if len(plan.PlannedActions) > 0 {
		score += 0.1
	}

	return ValidationResult{
		Score:            score,
		Success:          score >= successThreshold,
		ToolSuccessRatio: ratio,
	}
}
