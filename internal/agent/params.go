package agent

import "strings"

// maxQueryLength bounds search queries derived from raw task input.
const maxQueryLength = 120

// maxSummarizerInput bounds text handed to the summarizer.
const maxSummarizerInput = 8000

// DeriveParams builds tool parameters from raw task input. Derivation is
// deliberately conservative: every tool gets parameters that will pass its
// validation even when the input gives nothing better to work with.
func DeriveParams(toolName, input string) map[string]any {
	switch toolName {
	case "web_search":
		return map[string]any{"query": truncate(input, maxQueryLength)}
	case "calculator":
		return map[string]any{"expression": extractExpression(input)}
	case "text_summarizer":
		return map[string]any{"text": truncate(input, maxSummarizerInput)}
	case "datetime_tool":
		return map[string]any{"operation": "now"}
	case "json_parser":
		return map[string]any{"json_string": extractJSONDocument(input)}
	case "http_request":
		return map[string]any{"url": extractURL(input)}
	case "file_reader":
		return map[string]any{"file_path": extractPath(input)}
	default:
		return map[string]any{"input": truncate(input, maxQueryLength)}
	}
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// extractExpression pulls the longest run of arithmetic characters out of
// the input, defaulting to a harmless expression when none is found.
func extractExpression(input string) string {
	isExprChar := func(r rune) bool {
		return r >= '0' && r <= '9' || strings.ContainsRune("+-*/%(). ", r)
	}

	best := ""
	current := strings.Builder{}
	hasDigit := false
	flush := func() {
		if hasDigit && current.Len() > len(best) {
			best = strings.TrimSpace(current.String())
		}
		current.Reset()
		hasDigit = false
	}

	for _, r := range input {
		if isExprChar(r) {
			current.WriteRune(r)
			if r >= '0' && r <= '9' {
				hasDigit = true
			}
		} else {
			flush()
		}
	}
	flush()

	if best == "" {
		return "0"
	}
	if len(best) > 100 {
		best = best[:100]
	}
	return best
}

// extractJSONDocument returns the outermost brace-delimited region, or an
// empty object when the input holds none.
func extractJSONDocument(input string) string {
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start >= 0 && end > start {
		return input[start : end+1]
	}
	return "{}"
}

func extractURL(input string) string {
	for _, field := range strings.Fields(input) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			return strings.TrimRight(field, ".,;)")
		}
	}
	return ""
}

func extractPath(input string) string {
	for _, field := range strings.Fields(input) {
		if strings.HasPrefix(field, "/") || strings.HasPrefix(field, "./") {
			return strings.TrimRight(field, ".,;")
		}
	}
	return ""
}
