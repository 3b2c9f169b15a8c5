package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/insightloop-backend/internal/extract"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestReplyKnownShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"result field", `{"result": "hello"}`, "hello"},
		{"message field", `{"message": "a reply"}`, "a reply"},
		{"completion field", `{"completion": "done deal"}`, "done deal"},
		{"trims whitespace", `{"text": "  padded  "}`, "padded"},
		{"field priority", `{"text": "lower", "result": "wins"}`, "wins"},
		{"skips empty candidate", `{"result": "  ", "message": "next one"}`, "next one"},
		{"nested candidate object", `{"response": {"text": "inner"}}`, "inner"},
		{"choices message content", `{"choices": [{"message": {"content": "hi there"}}]}`, "hi there"},
		{"choices text", `{"choices": [{"text": "plain choice"}]}`, "plain choice"},
		{"choices delta", `{"choices": [{"delta": {"content": "streamed bit"}}]}`, "streamed bit"},
		{"data recursion", `{"data": {"reply": "from data"}}`, "from data"},
		{"success retry", `{"success": true, "result": "ok path"}`, "ok path"},
		{"deep scan long string", `{"meta": {"blob": "a perfectly long reply"}}`, "a perfectly long reply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extract.Reply(decode(t, tt.raw))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplyStringPassthrough(t *testing.T) {
	got, ok := extract.Reply("  plain text reply  ")
	require.True(t, ok)
	assert.Equal(t, "plain text reply", got)

	// An empty string is still a string result; it signals "no content".
	got, ok = extract.Reply("   ")
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestReplyNoResult(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"nil value", nil},
		{"metadata only", decode(t, `{"status": "ok", "id": "abc123"}`)},
		{"short strings only", decode(t, `{"a": "tiny", "b": "short"}`)},
		{"array value", decode(t, `[1, 2, 3]`)},
		{"number value", decode(t, `42`)},
		{"strings hidden in arrays", decode(t, `{"items": ["a long enough string value"]}`)},
		{"empty object", decode(t, `{}`)},
		{"empty choices", decode(t, `{"choices": []}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := extract.Reply(tt.v)
			assert.False(t, ok)
		})
	}
}

func TestReplyChoicesOrdering(t *testing.T) {
	raw := `{"choices": [{"message": {"content": "from message"}, "text": "from text", "delta": {"content": "from delta"}}]}`
	got, ok := extract.Reply(decode(t, raw))
	require.True(t, ok)
	assert.Equal(t, "from message", got)
}

func TestReplySuccessIndicatorString(t *testing.T) {
	// "true" as a string counts as a success indicator.
	got, ok := extract.Reply(decode(t, `{"success": "true", "output": "narrow field hit"}`))
	require.True(t, ok)
	assert.Equal(t, "narrow field hit", got)

	_, ok = extract.Reply(decode(t, `{"success": false, "id": "x1"}`))
	assert.False(t, ok)
}

func TestReplyDepthBound(t *testing.T) {
	// Build an object nested far beyond the recursion bound.
	inner := map[string]any{"wrapped": "a reply buried very deep down"}
	for i := 0; i < 40; i++ {
		inner = map[string]any{"nested": inner}
	}
	_, ok := extract.Reply(inner)
	assert.False(t, ok)
}

func TestReplyDeterministicDeepScan(t *testing.T) {
	// Two qualifying strings; key order decides, not map iteration order.
	raw := `{"zz": "the later long string", "aa": "the earlier long string"}`
	for i := 0; i < 10; i++ {
		got, ok := extract.Reply(decode(t, raw))
		require.True(t, ok)
		assert.Equal(t, "the earlier long string", got)
	}
}
