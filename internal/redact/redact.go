// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or returned in error responses. Task failures often carry
// text from upstream APIs, which can echo back keys, credentials or addresses.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order; later rules see the output of earlier ones.
var rules = []rule{
	// Google API keys
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	// user:password@ in URLs
	{regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/\s:@]+:[^/\s@]+@`), "${1}" + RedactedCredentialPlaceholder + "@"},
	// key-bearing query parameters
	{regexp.MustCompile(`(?i)([?&](?:key|api_key|apikey|token|access_token)=)[^&\s]+`), "${1}" + RedactedKeyPlaceholder},
	// key=value style secrets
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(\s*[:=]\s*)['"]?[^\s'"&,]{4,}['"]?`), "${1}${2}" + RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/=]{8,}`), "${1}" + RedactedTokenPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
	// absolute file paths
	{regexp.MustCompile(`(^|\s)(?:/[\w.-]+){2,}`), "${1}" + RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
