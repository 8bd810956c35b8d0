package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ten digit local gets default country", input: "9876543210", want: "+919876543210"},
		{name: "country code without plus", input: "919876543210", want: "+919876543210"},
		{name: "formatted local number", input: " (987) 654-3210 ", want: "+919876543210"},
		{name: "already canonical", input: "+919876543210", want: "+919876543210"},
		{name: "canonical is trimmed only", input: "  +44 20 7946 0958 ", want: "+44 20 7946 0958"},
		{name: "other lengths fall back to plus", input: "14155550123", want: "+14155550123"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace", input: "   ", want: ""},
		{name: "no digits", input: "call me", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotentOnCanonical(t *testing.T) {
	for _, c := range []string{"+919876543210", "+14155550123", "+447946095800"} {
		assert.Equal(t, c, Normalize(c))
		assert.Equal(t, c, Normalize(Normalize(c)))
	}
}

func TestDerivedForms(t *testing.T) {
	assert.Equal(t, "919876543210", Digits("+91 98765-43210"))
	assert.Equal(t, "9876543210", Local("+919876543210"))
	assert.Equal(t, "12345", Local("12345"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("+919876543210"))
	assert.False(t, Valid("919876543210"))
	assert.False(t, Valid("+12345"))
	assert.False(t, Valid("+91 9876543210"))
	assert.False(t, Valid(""))
}
