package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// codeBlockPattern matches markdown code fences with an optional language tag.
var codeBlockPattern = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n```")

// ExtractJSON pulls a JSON document out of a model response that may wrap
// it in prose or markdown fences. Fenced ```json blocks win over bare
// braces; the first balanced object or array in the text is used otherwise.
func ExtractJSON(response string) (string, error) {
	for _, match := range codeBlockPattern.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(match[1])
		if lang != "" && lang != "json" {
			continue
		}
		content := strings.TrimSpace(match[2])
		if isValidJSON(content) {
			return content, nil
		}
	}

	if doc, ok := extractBalanced(response); ok {
		return doc, nil
	}

	return "", types.NewError(types.TOOL_CALL_FAILED, "no valid JSON document found in model response")
}

// extractBalanced scans for the first balanced {...} or [...] span that
// parses as JSON. String literals and escapes are honored so braces inside
// strings do not terminate the scan early.
func extractBalanced(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	for start >= 0 {
		open := s[start]
		var closing byte = '}'
		if open == '[' {
			closing = ']'
		}

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == open:
				depth++
			case c == closing:
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if isValidJSON(candidate) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}

		next := strings.IndexAny(s[start+1:], "{[")
		if next < 0 {
			break
		}
		start = start + 1 + next
	}
	return "", false
}

func isValidJSON(s string) bool {
	return json.Valid([]byte(s))
}

// CompleteJSON runs a completion and unmarshals the extracted JSON into out.
// Parse failures classify as invalid_response so callers can decide whether
// to retry.
func CompleteJSON(ctx context.Context, p Provider, req Request, out any) error {
	req.JSONOnly = true
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return err
	}

	doc, err := ExtractJSON(resp.Content)
	if err != nil {
		return &types.ClassifiedError{
			Class:   types.ErrClassInvalidResponse,
			Message: fmt.Sprintf("%s returned no parseable JSON", p.Name()),
			Cause:   err,
		}
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return &types.ClassifiedError{
			Class:   types.ErrClassInvalidResponse,
			Message: fmt.Sprintf("%s returned malformed JSON: %v", p.Name(), err),
			Cause:   err,
		}
	}
	return nil
}
