// Package privacy sanitizes user content before it is persisted or sent to
// model providers.
package privacy

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

var (
	// privateTagRegex matches <private>...</private> spans
	privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

	// credentialRegexes match strings that look like API keys or tokens.
	// Users paste these into chat more often than one would hope.
	credentialRegexes = []*regexp.Regexp{
		regexp.MustCompile(`sk-or-v1-[0-9a-f]{16,}`),
		regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]{20,}`),
		regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
	}
)

// StripPrivateSpans removes all <private>...</private> content from text.
func StripPrivateSpans(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// RedactCredentials replaces API-key-shaped substrings with a placeholder.
func RedactCredentials(text string) string {
	for _, re := range credentialRegexes {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// IsEntirelyPrivate reports whether the text is entirely within <private>
// spans.
func IsEntirelyPrivate(text string) bool {
	return strings.TrimSpace(StripPrivateSpans(text)) == ""
}

// Clean strips private spans and redacts credentials. Use this before
// storing or forwarding any user content.
func Clean(text string) string {
	text = StripPrivateSpans(text)
	text = RedactCredentials(text)
	return strings.TrimSpace(text)
}
