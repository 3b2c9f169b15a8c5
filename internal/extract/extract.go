// Package extract locates reply text inside arbitrary vendor response
// payloads. The completions endpoint does not commit to a response schema,
// so extraction is a prioritized probe over the shapes observed in the
// wild, ending in a bounded deep scan for anything that looks like prose.
package extract

import (
	"sort"
	"strings"
)

// candidateFields is scanned in order; earlier names win when a payload
// populates several of them with different content.
var candidateFields = []string{
	"result",
	"message",
	"response",
	"completion",
	"text",
	"content",
	"answer",
	"reply",
	"output",
	"data",
	"body",
	"payload",
	"value",
	"answer_text",
	"generated_text",
	"reply_text",
	"completion_text",
}

// successFields is the narrower list retried when the payload carries an
// explicit success indicator but none of the usual fields matched.
var successFields = []string{
	"result",
	"data",
	"output",
	"response",
}

// maxDepth bounds recursion so a pathological or cyclic payload cannot
// blow the stack.
const maxDepth = 8

// minScanLength filters out status codes and identifiers during the
// last-resort scan.
const minScanLength = 10

// Reply returns the trimmed reply text found in v, or ok=false when the
// payload carries no usable text. v is a decoded JSON value (the result of
// json.Unmarshal into any) or a plain string.
func Reply(v any) (string, bool) {
	return reply(v, 0)
}

func reply(v any, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}
	switch val := v.(type) {
	case string:
		// Empty after trimming signals "no content" upstream.
		return strings.TrimSpace(val), true
	case nil:
		return "", false
	case map[string]any:
		return replyFromObject(val, depth)
	}
	return "", false
}

func replyFromObject(obj map[string]any, depth int) (string, bool) {
	if s, ok := scanFields(obj, candidateFields, depth); ok {
		return s, true
	}
	if s, ok := replyFromChoices(obj); ok {
		return s, true
	}
	if data, ok := obj["data"]; ok {
		if s, ok := reply(data, depth+1); ok && s != "" {
			return s, true
		}
	}
	if isSuccess(obj) {
		if s, ok := scanFields(obj, successFields, depth); ok {
			return s, true
		}
	}
	if s, ok := deepScan(obj, depth); ok {
		return s, true
	}
	return "", false
}

func scanFields(obj map[string]any, fields []string, depth int) (string, bool) {
	for _, name := range fields {
		v, ok := obj[name]
		if !ok {
			continue
		}
		switch field := v.(type) {
		case string:
			if s := strings.TrimSpace(field); s != "" {
				return s, true
			}
		case map[string]any:
			if s, ok := reply(field, depth+1); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// replyFromChoices probes the OpenAI-style choices array: element 0's
// message content first, then a plain text field, then delta content.
func replyFromChoices(obj map[string]any) (string, bool) {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	if msg, ok := first["message"].(map[string]any); ok {
		if s, ok := nonEmptyString(msg["content"]); ok {
			return s, true
		}
	}
	if s, ok := nonEmptyString(first["text"]); ok {
		return s, true
	}
	if delta, ok := first["delta"].(map[string]any); ok {
		if s, ok := nonEmptyString(delta["content"]); ok {
			return s, true
		}
	}
	return "", false
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if s = strings.TrimSpace(s); s == "" {
		return "", false
	}
	return s, true
}

func isSuccess(obj map[string]any) bool {
	switch s := obj["success"].(type) {
	case bool:
		return s
	case string:
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}

// deepScan walks own properties depth-first, skipping arrays, and returns
// the first string longer than minScanLength. It tolerates completely
// unanticipated schemas without mistaking ids or status values for prose.
func deepScan(obj map[string]any, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}
	for _, name := range sortedKeys(obj) {
		switch v := obj[name].(type) {
		case string:
			if s := strings.TrimSpace(v); len(s) > minScanLength {
				return s, true
			}
		case map[string]any:
			if s, ok := deepScan(v, depth+1); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Map iteration order is random; sort keys so extraction is deterministic.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
