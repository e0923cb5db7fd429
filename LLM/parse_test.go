package LLM

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBareObject(t *testing.T) {
	text := `{"basic": {"status": "ok", "score": 80}}`
	got := ExtractJSON(text)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Contains(t, parsed, "basic")
}

func TestExtractJSONFencedBlock(t *testing.T) {
	text := "Here is the review:\n```json\n{\"total\": 95}\n```\nHope it helps."
	got := ExtractJSON(text)

	var parsed map[string]float64
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, 95.0, parsed["total"])
}

func TestExtractJSONProseWrapped(t *testing.T) {
	text := `Sure! The result is {"score": 42} as requested.`
	got := ExtractJSON(text)
	assert.Equal(t, `{"score": 42}`, got)
}

func TestExtractJSONNestedBraces(t *testing.T) {
	// Leftmost { to rightmost } keeps nested objects intact
	text := `prefix {"a": {"b": 1}, "c": {"d": 2}} suffix`
	got := ExtractJSON(text)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Len(t, parsed, 2)
}

func TestExtractJSONNoObject(t *testing.T) {
	assert.Equal(t, "no json here", ExtractJSON("no json here"))
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"85", 85},
		{"85.5", 85.5},
		{"The progress is 70 percent", 70},
		{"  42.0  ", 42},
	}
	for _, tc := range cases {
		got, err := ParseNumber(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseNumberNoValue(t *testing.T) {
	_, err := ParseNumber("I cannot estimate that")
	assert.Error(t, err)
}
