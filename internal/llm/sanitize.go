package llm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxRationaleLength = 500

// cleanMarkdownWrapper strips markdown code fences that models sometimes
// wrap around JSON payloads.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

// sanitizeText makes provider free text safe to store and display: control
// characters removed, length clamped. Sanitized text is display-only and is
// never fed back into later prompts.
func sanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if len(out) > maxRationaleLength {
		// Clamp on a rune boundary so a multi-byte character is never
		// split into invalid UTF-8.
		cut := maxRationaleLength
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	return out
}

// clampConfidence forces a confidence score into [0, 1].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
