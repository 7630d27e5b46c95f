package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultsConfig tunes the built-in tool set.
type DefaultsConfig struct {
	// HTTPTimeout bounds outbound requests made by web_search and
	// http_request.
	HTTPTimeout time.Duration
	// SearchEndpoint is the instant-answer API queried by web_search.
	SearchEndpoint string
}

// maxFileReadBytes caps file_reader output when no limit is given.
const maxFileReadBytes = 64 * 1024

// maxHTTPBodyBytes caps response bodies returned by http_request.
const maxHTTPBodyBytes = 256 * 1024

// RegisterDefaults registers the built-in tool set on the registry.
func RegisterDefaults(registry *Registry, cfg DefaultsConfig) error {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	type registration struct {
		name        string
		description string
		params      ParameterSpec
		category    string
		capability  Capability
	}

	registrations := []registration{
		{
			name:        "web_search",
			description: "Search the web and return matching result snippets",
			params: ParameterSpec{
				Required: []string{"query"},
				Optional: []string{"max_results"},
				Descriptions: map[string]string{
					"query":       "search query string",
					"max_results": "maximum number of results to return (default 5)",
				},
			},
			category:   "search",
			capability: webSearchCapability(httpClient, cfg.SearchEndpoint),
		},
		{
			name:        "calculator",
			description: "Evaluate an arithmetic expression",
			params: ParameterSpec{
				Required: []string{"expression"},
				Descriptions: map[string]string{
					"expression": "arithmetic expression using + - * / % and parentheses",
				},
			},
			category:   "computation",
			capability: CapabilityFunc(calculatorCapability),
		},
		{
			name:        "text_summarizer",
			description: "Produce an extractive summary of a text",
			params: ParameterSpec{
				Required: []string{"text"},
				Optional: []string{"max_sentences"},
				Descriptions: map[string]string{
					"text":          "text to summarize",
					"max_sentences": "maximum sentences in the summary (default 3)",
				},
			},
			category:   "data_processing",
			capability: CapabilityFunc(summarizerCapability),
		},
		{
			name:        "file_reader",
			description: "Read the contents of a local file",
			params: ParameterSpec{
				Required: []string{"file_path"},
				Optional: []string{"max_bytes"},
				Descriptions: map[string]string{
					"file_path": "path to the file to read",
					"max_bytes": "maximum number of bytes to return",
				},
			},
			category:   "file_operations",
			capability: CapabilityFunc(fileReaderCapability),
		},
		{
			name:        "json_parser",
			description: "Parse a JSON document and optionally extract a value",
			params: ParameterSpec{
				Required: []string{"json_string"},
				Optional: []string{"path"},
				Descriptions: map[string]string{
					"json_string": "JSON document to parse",
					"path":        "dot-separated path to extract, e.g. user.name",
				},
			},
			category:   "data_processing",
			capability: CapabilityFunc(jsonParserCapability),
		},
		{
			name:        "http_request",
			description: "Make an HTTP request and return the response",
			params: ParameterSpec{
				Required: []string{"url"},
				Optional: []string{"method", "headers", "body"},
				Descriptions: map[string]string{
					"url":     "request URL",
					"method":  "HTTP method (default GET)",
					"headers": "request headers as a string map",
					"body":    "request body for POST and PUT",
				},
			},
			category:   "communication",
			capability: httpRequestCapability(httpClient),
		},
		{
			name:        "datetime_tool",
			description: "Current time, date arithmetic, and timestamp parsing",
			params: ParameterSpec{
				Optional: []string{"operation", "days", "value"},
				Descriptions: map[string]string{
					"operation": "one of now, add_days, parse (default now)",
					"days":      "day offset for add_days",
					"value":     "timestamp string for parse",
				},
			},
			category:   "general",
			capability: CapabilityFunc(datetimeCapability),
		},
	}

	for _, reg := range registrations {
		if err := registry.Register(reg.name, reg.description, reg.params, reg.category, reg.capability); err != nil {
			return fmt.Errorf("register default tool %s: %w", reg.name, err)
		}
	}
	return nil
}

// webSearchCapability queries the instant-answer endpoint. Network and
// decode failures degrade to an empty result list instead of an error so
// chains keep moving without connectivity.
func webSearchCapability(client *http.Client, endpoint string) Capability {
	return CapabilityFunc(func(ctx context.Context, params map[string]any) (any, error) {
		query := stringParam(params, "query")
		maxResults := intParam(params, "max_results", 5)
		if maxResults <= 0 {
			maxResults = 5
		}

		empty := map[string]any{"query": query, "results": []any{}, "result_count": 0}
		if endpoint == "" {
			return empty, nil
		}

		reqURL := endpoint + "?" + url.Values{
			"q":             {query},
			"format":        {"json"},
			"no_redirect":   {"1"},
			"skip_disambig": {"1"},
		}.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return empty, nil
		}
		resp, err := client.Do(req)
		if err != nil {
			return empty, nil
		}
		defer resp.Body.Close()

		var payload struct {
			Abstract      string `json:"Abstract"`
			AbstractURL   string `json:"AbstractURL"`
			Heading       string `json:"Heading"`
			RelatedTopics []struct {
				Text     string `json:"Text"`
				FirstURL string `json:"FirstURL"`
			} `json:"RelatedTopics"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxHTTPBodyBytes)).Decode(&payload); err != nil {
			return empty, nil
		}

		var results []any
		if payload.Abstract != "" {
			results = append(results, map[string]any{
				"title":   payload.Heading,
				"snippet": payload.Abstract,
				"url":     payload.AbstractURL,
			})
		}
		for _, topic := range payload.RelatedTopics {
			if len(results) >= maxResults {
				break
			}
			if topic.Text == "" {
				continue
			}
			results = append(results, map[string]any{
				"title":   topic.Text,
				"snippet": topic.Text,
				"url":     topic.FirstURL,
			})
		}
		if results == nil {
			results = []any{}
		}
		return map[string]any{"query": query, "results": results, "result_count": len(results)}, nil
	})
}

func calculatorCapability(_ context.Context, params map[string]any) (any, error) {
	expression := stringParam(params, "expression")
	value, err := evalArithmetic(expression)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return map[string]any{"expression": expression, "result": value}, nil
}

func summarizerCapability(_ context.Context, params map[string]any) (any, error) {
	text := stringParam(params, "text")
	maxSentences := intParam(params, "max_sentences", 3)
	if maxSentences <= 0 {
		maxSentences = 3
	}

	sentences := splitSentences(text)
	if len(sentences) <= maxSentences {
		return map[string]any{
			"summary":            strings.TrimSpace(text),
			"original_sentences": len(sentences),
			"summary_sentences":  len(sentences),
		}, nil
	}

	frequencies := make(map[string]int)
	for _, sentence := range sentences {
		for _, word := range tokenizeWords(sentence) {
			frequencies[word]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sentence := range sentences {
		words := tokenizeWords(sentence)
		total := 0
		for _, word := range words {
			total += frequencies[word]
		}
		score := 0.0
		if len(words) > 0 {
			score = float64(total) / float64(len(words))
		}
		ranked[i] = scored{index: i, score: score}
	}
	sort.Slice(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	picked := ranked[:maxSentences]
	sort.Slice(picked, func(a, b int) bool { return picked[a].index < picked[b].index })

	parts := make([]string, len(picked))
	for i, s := range picked {
		parts[i] = sentences[s.index]
	}

	return map[string]any{
		"summary":            strings.Join(parts, " "),
		"original_sentences": len(sentences),
		"summary_sentences":  len(picked),
	}, nil
}

func fileReaderCapability(_ context.Context, params map[string]any) (any, error) {
	path := stringParam(params, "file_path")
	limit := intParam(params, "max_bytes", maxFileReadBytes)
	if limit <= 0 {
		limit = maxFileReadBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return map[string]any{
		"file_path": path,
		"content":   string(data),
		"size":      info.Size(),
		"truncated": info.Size() > int64(len(data)),
	}, nil
}

func jsonParserCapability(_ context.Context, params map[string]any) (any, error) {
	raw := stringParam(params, "json_string")

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	path := stringParam(params, "path")
	if path == "" {
		return map[string]any{"parsed": parsed}, nil
	}

	current := parsed
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("path element not found: %s", part)
			}
			current = value
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(node) {
				return nil, fmt.Errorf("invalid array index: %s", part)
			}
			current = node[index]
		default:
			return nil, fmt.Errorf("path element not found: %s", part)
		}
	}
	return map[string]any{"path": path, "value": current}, nil
}

func httpRequestCapability(client *http.Client) Capability {
	return CapabilityFunc(func(ctx context.Context, params map[string]any) (any, error) {
		target := stringParam(params, "url")
		method := strings.ToUpper(stringParam(params, "method"))
		if method == "" {
			method = http.MethodGet
		}
		switch method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodHead, http.MethodDelete:
		default:
			return nil, fmt.Errorf("unsupported method: %s", method)
		}

		var body io.Reader
		if raw := stringParam(params, "body"); raw != "" {
			body = strings.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if headers, ok := params["headers"].(map[string]any); ok {
			for name, value := range headers {
				req.Header.Set(name, fmt.Sprint(value))
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		return map[string]any{
			"status_code":  resp.StatusCode,
			"content_type": resp.Header.Get("Content-Type"),
			"body":         string(data),
		}, nil
	})
}

func datetimeCapability(_ context.Context, params map[string]any) (any, error) {
	operation := stringParam(params, "operation")
	if operation == "" {
		operation = "now"
	}
	now := time.Now()

	switch operation {
	case "now":
		return map[string]any{
			"timestamp": now.Format(time.RFC3339),
			"date":      now.Format("2006-01-02"),
			"time":      now.Format("15:04:05"),
			"weekday":   now.Weekday().String(),
		}, nil
	case "add_days":
		days := intParam(params, "days", 0)
		result := now.AddDate(0, 0, days)
		return map[string]any{
			"timestamp": result.Format(time.RFC3339),
			"date":      result.Format("2006-01-02"),
			"days":      days,
		}, nil
	case "parse":
		value := stringParam(params, "value")
		parsed, err := parseTimestamp(value)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"timestamp": parsed.Format(time.RFC3339),
			"date":      parsed.Format("2006-01-02"),
			"weekday":   parsed.Weekday().String(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported operation: %s", operation)
	}
}

func parseTimestamp(value string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %s", value)
}

func stringParam(params map[string]any, key string) string {
	if value, ok := params[key].(string); ok {
		return value
	}
	return ""
}

func intParam(params map[string]any, key string, fallback int) int {
	switch value := params[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func tokenizeWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var words []string
	for _, field := range fields {
		if len(field) > 2 {
			words = append(words, field)
		}
	}
	return words
}
