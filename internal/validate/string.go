// Package validate provides centralized input validation for values arriving
// over the API: SKUs, search terms, and product names.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength      int            // Minimum length (0 = no minimum)
	MaxLength      int            // Maximum length (0 = no maximum)
	AllowedPattern *regexp.Regexp // Optional regex pattern for allowed characters
	AllowEmpty     bool           // Whether empty strings are allowed
	TrimSpace      bool           // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	return s, nil
}

// skuPattern matches the article numbers the storefront issues: letters,
// digits, dash, underscore and dot, up to 64 characters.
var skuPattern = regexp.MustCompile(`^[A-Za-z0-9_\-\.]+$`)

// SKU validates a product article number.
func SKU(sku string) (string, error) {
	return String(sku, StringConstraints{
		MinLength:      1,
		MaxLength:      64,
		AllowedPattern: skuPattern,
		AllowEmpty:     false,
		TrimSpace:      true,
	})
}

// SearchTerm validates a free-text search query:
// - Optional (can be empty)
// - Max 100 characters
func SearchTerm(term string) (string, error) {
	return String(term, StringConstraints{
		MaxLength:  100,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}
