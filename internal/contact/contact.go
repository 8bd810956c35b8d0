// Package contact turns user- or URL-supplied phone numbers into the canonical
// "+<country><digits>" identifier used as the user key everywhere else.
package contact

import "strings"

// DefaultCountryCode is prefixed onto bare 10-digit local numbers.
const DefaultCountryCode = "91"

const localLength = 10

// Normalize returns the canonical form of input, or "" when input carries no digits.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}

	digits := Digits(trimmed)
	switch {
	case digits == "":
		return ""
	case len(digits) == localLength:
		return "+" + DefaultCountryCode + digits
	default:
		// Covers "91XXXXXXXXXX" as well as other country codes.
		return "+" + digits
	}
}

// Digits strips everything but ASCII digits. This is the form the OTP endpoints expect.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Local returns the trailing 10 digits of s for display, or all digits when shorter.
func Local(s string) string {
	digits := Digits(s)
	if len(digits) <= localLength {
		return digits
	}
	return digits[len(digits)-localLength:]
}

// Valid reports whether s is canonical and long enough to address a phone.
func Valid(s string) bool {
	if !strings.HasPrefix(s, "+") {
		return false
	}
	rest := s[1:]
	if len(rest) < localLength {
		return false
	}
	return Digits(rest) == rest
}
