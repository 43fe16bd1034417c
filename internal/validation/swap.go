package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"skillswap/internal/models"
)

// Swap and skill limits.
const (
	MaxSkillNameLength   = 100
	MaxDescriptionLength = 500
	MaxMessageLength     = 1000
	MaxReasonLength      = 500
	MaxCommentLength     = 500
	MinDurationHours     = 0.5
	MaxDurationHours     = 8.0
	MinRating            = 1
	MaxRating            = 5
)

// ValidateSkillName checks a required skill name.
func ValidateSkillName(field, name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return fmt.Errorf("%s is required", field)
	}
	if n > MaxSkillNameLength {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxSkillNameLength)
	}
	return nil
}

// ValidateMaxLength checks an optional free-text field.
func ValidateMaxLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%s must not exceed %d characters", field, limit)
	}
	return nil
}

// ValidateDuration checks a session length in hours.
func ValidateDuration(hours float64) error {
	if hours < MinDurationHours || hours > MaxDurationHours {
		return fmt.Errorf("Duration must be between %.1f and %.0f hours", MinDurationHours, MaxDurationHours)
	}
	return nil
}

// ValidateRating checks a feedback rating.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("Rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateProficiency checks an offered skill level.
func ValidateProficiency(level string) error {
	if !slices.Contains(models.Proficiencies, level) {
		return fmt.Errorf("Proficiency must be one of %s", strings.Join(models.Proficiencies, ", "))
	}
	return nil
}

// ValidatePriority checks a wanted skill priority.
func ValidatePriority(priority string) error {
	if !slices.Contains(models.Priorities, priority) {
		return fmt.Errorf("Priority must be one of %s", strings.Join(models.Priorities, ", "))
	}
	return nil
}
