package tools

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Condition expressions guard chain steps. Only a fixed boolean grammar is
// supported: context lookups and literals compared with == or != and joined
// with and/or. Anything unsafe or malformed evaluates to false so a bad
// condition skips its step instead of breaking the chain.

// unsafeTokens in a raw condition force evaluation to false.
var unsafeTokens = []string{"import", "exec", "eval", "__"}

// EvaluateCondition evaluates a condition string against a chain context.
func EvaluateCondition(condition string, context map[string]any) bool {
	for _, token := range unsafeTokens {
		if strings.Contains(condition, token) {
			log.Printf("[tools] unsafe condition rejected: %s", condition)
			return false
		}
	}

	tokens, err := tokenizeCondition(condition)
	if err != nil {
		log.Printf("[tools] condition tokenize error: %v", err)
		return false
	}

	p := &conditionParser{tokens: tokens, context: context}
	result, err := p.parseOr()
	if err != nil || p.pos != len(p.tokens) {
		log.Printf("[tools] condition parse error in %q", condition)
		return false
	}
	return truthy(result)
}

type condToken struct {
	kind  string // "ident", "string", "number", "op"
	value string
}

func tokenizeCondition(s string) ([]condToken, error) {
	var tokens []condToken
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(s) && s[j] != quote {
				j++
			}
			if j >= len(s) {
				return nil, errUnterminatedString
			}
			tokens = append(tokens, condToken{kind: "string", value: s[i+1 : j]})
			i = j + 1
		case c == '=' || c == '!':
			if i+1 >= len(s) || s[i+1] != '=' {
				return nil, errBadOperator
			}
			tokens = append(tokens, condToken{kind: "op", value: s[i : i+2]})
			i += 2
		case c == '(' || c == ')':
			tokens = append(tokens, condToken{kind: "op", value: string(c)})
			i++
		case isIdentChar(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			word := s[i:j]
			if _, err := strconv.ParseFloat(word, 64); err == nil {
				tokens = append(tokens, condToken{kind: "number", value: word})
			} else {
				tokens = append(tokens, condToken{kind: "ident", value: word})
			}
			i = j
		default:
			return nil, errBadCharacter
		}
	}
	return tokens, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '.' || c == '-'
}

var (
	errUnterminatedString = errString("unterminated string literal")
	errBadOperator        = errString("unsupported operator")
	errBadCharacter       = errString("unsupported character")
	errUnexpectedEnd      = errString("unexpected end of condition")
)

type errString string

func (e errString) Error() string { return string(e) }

type conditionParser struct {
	tokens  []condToken
	pos     int
	context map[string]any
}

func (p *conditionParser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekIdent("or") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *conditionParser) parseAnd() (any, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peekIdent("and") {
		p.pos++
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *conditionParser) parseComparison() (any, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == "op" &&
		(p.tokens[p.pos].value == "==" || p.tokens[p.pos].value == "!=") {
		op := p.tokens[p.pos].value
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		equal := valuesEqual(left, right)
		if op == "==" {
			return equal, nil
		}
		return !equal, nil
	}
	return left, nil
}

func (p *conditionParser) parseTerm() (any, error) {
	if p.pos >= len(p.tokens) {
		return nil, errUnexpectedEnd
	}
	tok := p.tokens[p.pos]

	if tok.kind == "op" && tok.value == "(" {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].value != ")" {
			return nil, errUnexpectedEnd
		}
		p.pos++
		return inner, nil
	}

	p.pos++
	switch tok.kind {
	case "string":
		return tok.value, nil
	case "number":
		f, _ := strconv.ParseFloat(tok.value, 64)
		return f, nil
	case "ident":
		switch strings.ToLower(tok.value) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "none", "null":
			return nil, nil
		}
		return lookupPath(p.context, tok.value), nil
	default:
		return nil, errBadOperator
	}
}

func (p *conditionParser) peekIdent(word string) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].kind == "ident" &&
		strings.EqualFold(p.tokens[p.pos].value, word)
}

// lookupPath resolves a dotted identifier against the context, descending
// into nested maps. Missing keys resolve to nil.
func lookupPath(context map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = context
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		lower := strings.ToLower(val)
		return val != "" && lower != "false" && lower != "none"
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	return stringify(a) == stringify(b)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}
