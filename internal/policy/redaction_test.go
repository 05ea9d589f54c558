package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	assert.True(t, changed)
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		assert.Contains(t, out, marker)
	}
	assert.NotContains(t, out, "4242")
}

func TestRedactPIISSN(t *testing.T) {
	out, changed := RedactPII("my social is 123-45-6789")
	assert.True(t, changed)
	assert.Equal(t, "my social is [REDACTED_SSN]", out)
}

func TestRedactPIILeavesPlainText(t *testing.T) {
	out, changed := RedactPII("I would like to book a table for 2")
	assert.False(t, changed)
	assert.Equal(t, "I would like to book a table for 2", out)
}

func TestRedactor(t *testing.T) {
	assert.Equal(t, "call 555-123-9876", Redactor{}.Text("call 555-123-9876"))
	assert.Equal(t, "call [REDACTED_PHONE]", NewRedactor(true).Text("call 555-123-9876"))
}
