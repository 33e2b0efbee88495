// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"unicode"
)

var (
	usernameRe     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	digitRe        = regexp.MustCompile(`[0-9]`)
	specialRe      = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
	municipalityRe = regexp.MustCompile(`^[\p{L}0-9 .'-]+$`)
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	hasUpper := false
	hasLower := false
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !specialRe.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}

	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}

	return nil
}

// ValidateMunicipality checks a municipality name. Names come from user input
// at registration and are used verbatim for review scoping, so they are kept
// to plain place-name characters.
func ValidateMunicipality(name string) error {
	if len(name) < 2 {
		return fmt.Errorf("municipality must be at least 2 characters long")
	}
	if len(name) > 80 {
		return fmt.Errorf("municipality must not exceed 80 characters")
	}
	if !municipalityRe.MatchString(name) {
		return fmt.Errorf("municipality can only contain letters, numbers, spaces, dots, apostrophes, and hyphens")
	}
	return nil
}
