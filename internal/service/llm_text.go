package service

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinkBlocks removes reasoning blocks some models emit before the answer
func stripThinkBlocks(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

// stripCodeFence removes a surrounding markdown code block
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the text from the first '{' to the last '}'.
// Without braces the input is returned unchanged.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// cleanModelOutput turns a raw completion into the JSON text it contains
func cleanModelOutput(s string) string {
	return extractJSONObject(stripCodeFence(stripThinkBlocks(s)))
}
