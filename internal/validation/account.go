// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MinNameLength     = 2
	MaxNameLength     = 50
	MaxEmailLength    = 254
	MaxLocationLength = 100
	MaxPhotoURLLength = 500
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lowercases an address. Emails are stored in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("Password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("Password must not exceed %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return fmt.Errorf("Name must be between %d and %d characters", MinNameLength, MaxNameLength)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return fmt.Errorf("Email must not exceed %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("Please provide a valid email")
	}
	return nil
}

// ValidateLocation checks the optional free-text location.
func ValidateLocation(location string) error {
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return fmt.Errorf("Location must not exceed %d characters", MaxLocationLength)
	}
	return nil
}

// ValidateProfilePhoto checks the optional photo URL.
func ValidateProfilePhoto(url string) error {
	if url == "" {
		return nil
	}
	if len(url) > MaxPhotoURLLength {
		return fmt.Errorf("Profile photo URL must not exceed %d characters", MaxPhotoURLLength)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("Profile photo must be an http(s) URL")
	}
	return nil
}
