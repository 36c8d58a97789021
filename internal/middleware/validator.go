package middleware

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

const maxFieldLength = 200

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}

	// Remove control characters except newline and tab
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	out := strings.TrimSpace(result.String())
	if utf8.RuneCountInString(out) > maxFieldLength {
		out = string([]rune(out)[:maxFieldLength])
	}
	return out
}

var accountPattern = regexp.MustCompile(`^[0-9-]{6,20}$`)

// ValidateAccountNumber accepts digits and dashes only. Empty is allowed.
func ValidateAccountNumber(account string) error {
	if account == "" {
		return nil
	}
	if !accountPattern.MatchString(account) {
		return fmt.Errorf("invalid account number format")
	}
	return nil
}

// ValidateRating checks a feedback rating is between 1 and 5.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return nil
}

// ValidatePage checks that page is one of the allowed static pages and is a
// bare file name.
func ValidatePage(page string, allowed []string) error {
	if page == "" || page != path.Base(page) || strings.Contains(page, "..") {
		return fmt.Errorf("invalid page name")
	}
	for _, a := range allowed {
		if page == a {
			return nil
		}
	}
	return fmt.Errorf("page %s not found", page)
}
