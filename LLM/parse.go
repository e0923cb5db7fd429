package LLM

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	jsonSpanRe    = regexp.MustCompile(`(?s)\{.*\}`)
	numberRe      = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
)

// ExtractJSON pulls a JSON object out of a model reply. Handles fenced
// code blocks, prose-wrapped objects and bare JSON; falls back to the
// original text when nothing looks like an object.
func ExtractJSON(text string) string {
	if strings.Contains(text, "```") {
		if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
		}
	}

	// Leftmost '{' to rightmost '}'
	if m := jsonSpanRe.FindString(text); m != "" {
		return m
	}

	return text
}

// ParseNumber recovers a numeric value from a model reply: first
// number-like token wins, then a whole-string float conversion.
func ParseNumber(text string) (float64, error) {
	if m := numberRe.FindString(text); m != "" {
		return strconv.ParseFloat(m, 64)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("no numeric value in reply %q", truncate(text, 80))
	}
	return value, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
