package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// Input validation and sanitization utilities

// Result ids are opaque backend values; only path separators and control
// characters are refused.
var resultIDPattern = regexp.MustCompile(`^[^/\\\x00-\x1f]{1,256}$`)

// ValidateCategory parses a category query/path value.
func ValidateCategory(raw string) (analysis.Category, error) {
	c := analysis.ParseCategory(raw)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q (allowed: image, audio, video, text)", analysis.ErrUnsupportedCategory, raw)
	}
	return c, nil
}

// ValidateOptionalCategory is ValidateCategory that also accepts "".
func ValidateOptionalCategory(raw string) (analysis.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return ValidateCategory(raw)
}

// ValidateSeverity accepts "", mild, moderate or severe.
func ValidateSeverity(raw string) (analysis.Severity, error) {
	s := analysis.Severity(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", &analysis.ValidationError{Reason: fmt.Sprintf("invalid severity %q (allowed: mild, moderate, severe)", raw)}
	}
	return s, nil
}

// ValidateResultID validates result ID format
func ValidateResultID(id string) (analysis.ResultID, error) {
	if id == "" {
		return "", &analysis.ValidationError{Reason: "result ID cannot be empty"}
	}
	if !resultIDPattern.MatchString(id) {
		return "", &analysis.ValidationError{Reason: "invalid result ID format"}
	}
	return analysis.ResultID(id), nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
