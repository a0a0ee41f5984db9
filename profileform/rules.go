package profileform

import (
	"regexp"
	"strconv"
	"strings"
)

// Field names used by the rule table and the controller's error map.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldPhone     = "phone"
	FieldCompany   = "company"
)

// maxSanitizedLength caps any sanitized input regardless of field rules.
const maxSanitizedLength = 200

// fieldRule describes the validation applied to one form field. Phone is
// absent here on purpose; its check is structural and lives in phone.go.
type fieldRule struct {
	label     string
	maxLength int
	pattern   *regexp.Regexp
	required  bool
}

var (
	namePattern    = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	companyPattern = regexp.MustCompile(`^[a-zA-Z0-9\s&.,'-]+$`)
)

var fieldRules = map[string]fieldRule{
	FieldFirstName: {label: "First name", maxLength: 50, pattern: namePattern, required: true},
	FieldLastName:  {label: "Last name", maxLength: 50, pattern: namePattern, required: true},
	FieldCompany:   {label: "Company", maxLength: 100, pattern: companyPattern},
}

// ValidateField checks one field value against its rule and returns a
// user-facing message, or "" when the value passes.
func ValidateField(field, value string) string {
	if field == FieldPhone {
		if !IsValidPhoneNumber(value) {
			return "Please enter a valid 10-digit phone number"
		}
		return ""
	}

	rule, ok := fieldRules[field]
	if !ok {
		return ""
	}

	trimmed := strings.TrimSpace(value)
	if rule.required && trimmed == "" {
		return rule.label + " is required"
	}
	if trimmed == "" {
		return ""
	}
	if len(trimmed) > rule.maxLength {
		return rule.label + " must be " + strconv.Itoa(rule.maxLength) + " characters or less"
	}
	if rule.pattern != nil && !rule.pattern.MatchString(trimmed) {
		return rule.label + " contains invalid characters"
	}
	return ""
}

// ValidateForm runs every field rule and returns the full violation set,
// keyed by field name. An empty map means the form is submittable.
func ValidateForm(data FormData) map[string]string {
	violations := make(map[string]string)
	for field, value := range map[string]string{
		FieldFirstName: data.FirstName,
		FieldLastName:  data.LastName,
		FieldPhone:     data.Phone,
		FieldCompany:   data.Company,
	} {
		if msg := ValidateField(field, value); msg != "" {
			violations[field] = msg
		}
	}
	return violations
}

// SanitizeInput trims whitespace, strips angle brackets, and caps the
// length. It runs on every value right before submission.
func SanitizeInput(value string) string {
	s := strings.TrimSpace(value)
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	// Truncate by rune so a multibyte character is never split.
	if runes := []rune(s); len(runes) > maxSanitizedLength {
		s = string(runes[:maxSanitizedLength])
	}
	return s
}
