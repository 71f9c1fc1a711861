// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package world

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits for domain types.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000

	// Character name limits (stricter than location names)
	MinCharacterNameLength = 2
	MaxCharacterNameLength = 32
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes the sentinel behind the failure, if any.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// ValidateName checks that a display name is non-empty, valid UTF-8,
// free of control characters, and within length limit.
func ValidateName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if !utf8.ValidString(name) {
		return &ValidationError{Field: "name", Message: "must be valid UTF-8"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("exceeds maximum length of %d", MaxNameLength)}
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return &ValidationError{Field: "name", Message: "cannot contain control characters"}
	}
	return nil
}

// characterNameRegex allows letters, digits, apostrophes and hyphens, with single spaces between words.
var characterNameRegex = regexp.MustCompile(`^[\p{L}\p{N}'-]+( [\p{L}\p{N}'-]+)*$`)

// ValidateCharacterName checks the rules for player-chosen character names:
//   - 2-32 characters
//   - no leading, trailing or consecutive spaces
//   - letters, digits, apostrophes and hyphens only
func ValidateCharacterName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if name != strings.TrimSpace(name) {
		return &ValidationError{Field: "name", Message: "cannot have leading or trailing spaces"}
	}
	if strings.Contains(name, "  ") {
		return &ValidationError{Field: "name", Message: "cannot have consecutive spaces"}
	}
	n := utf8.RuneCountInString(name)
	if n < MinCharacterNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be at least %d characters", MinCharacterNameLength)}
	}
	if n > MaxCharacterNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", MaxCharacterNameLength)}
	}
	if !characterNameRegex.MatchString(name) {
		return &ValidationError{Field: "name", Message: "contains unsupported characters"}
	}
	return nil
}

// ValidateDescription checks that a description is valid UTF-8 and within length limit.
// Empty descriptions are allowed.
func ValidateDescription(desc string) error {
	if desc == "" {
		return nil
	}
	if !utf8.ValidString(desc) {
		return &ValidationError{Field: "description", Message: "must be valid UTF-8"}
	}
	if len(desc) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("exceeds maximum length of %d", MaxDescriptionLength)}
	}
	return nil
}
