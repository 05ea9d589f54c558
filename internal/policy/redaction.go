// Package policy masks caller PII before it reaches logs.
package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

// Order matters: longer digit runs are claimed before the phone pattern sees them.
var rules = []struct {
	pattern *regexp.Regexp
	marker  string
}{
	{emailPattern, "[REDACTED_EMAIL]"},
	{cardPattern, "[REDACTED_CARD]"},
	{ssnPattern, "[REDACTED_SSN]"},
	{phonePattern, "[REDACTED_PHONE]"},
}

// RedactPII masks emails, card numbers, SSNs and phone numbers in input.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, rule := range rules {
		next := rule.pattern.ReplaceAllString(out, rule.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// Redactor applies RedactPII when enabled. The zero value passes text through.
type Redactor struct {
	enabled bool
}

func NewRedactor(enabled bool) Redactor { return Redactor{enabled: enabled} }

func (r Redactor) Text(s string) string {
	if !r.enabled {
		return s
	}
	out, _ := RedactPII(s)
	return out
}
