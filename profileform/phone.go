// Package profileform implements the profile editing flow: field rules,
// input sanitization, phone number formatting, the form controller that
// drives partial updates, and the avatar upload pipeline.
package profileform

import "strings"

// maxPhoneDigits is the national number length; anything beyond it is
// dropped while formatting.
const maxPhoneDigits = 10

// digitsOnly strips everything but ASCII digits.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhoneNumber renders the input as "(XXX) XXX-XXXX", formatting
// progressively so partial input stays readable while typing. The result
// never exceeds 14 characters.
func FormatPhoneNumber(input string) string {
	digits := digitsOnly(input)
	if len(digits) > maxPhoneDigits {
		digits = digits[:maxPhoneDigits]
	}

	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 3:
		return "(" + digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	default:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
}

// UnformatPhoneNumber reduces a formatted phone back to its digits for
// storage and comparison.
func UnformatPhoneNumber(input string) string {
	digits := digitsOnly(input)
	if len(digits) > maxPhoneDigits {
		digits = digits[:maxPhoneDigits]
	}
	return digits
}

// IsValidPhoneNumber accepts an empty phone or exactly ten digits. The
// check is structural only; no carrier or region lookup happens here.
func IsValidPhoneNumber(input string) bool {
	digits := digitsOnly(input)
	return len(digits) == 0 || len(digits) == maxPhoneDigits
}
