// Package redact strips session credentials and signed URL parameters from
// strings before they are logged or returned in error responses. Remote
// errors often embed the request URL or cookie header, and asset URLs carry
// short-lived signatures.
package redact

import "regexp"

// Redaction placeholders
const (
	RedactionPlaceholder   = "[REDACTED]"
	RedactedKeyPlaceholder = "[REDACTED_KEY]"
	RedactedJWTPlaceholder = "[REDACTED_JWT]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules run in order; earlier replacements must not feed later patterns
var rules = []rule{
	// hy_token=... and hy_user=... session cookies
	{
		regexp.MustCompile(`(?i)\b(hy_token|hy_user)=[^;\s&"]+`),
		"${1}=" + RedactionPlaceholder,
	},
	// signature-bearing query parameters of signed asset URLs
	{
		regexp.MustCompile(`(?i)([?&](?:sign|signature|q-signature|q-key-time|x-cos-security-token|token)=)[^&\s"]+`),
		"${1}" + RedactionPlaceholder,
	},
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		RedactedJWTPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
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
