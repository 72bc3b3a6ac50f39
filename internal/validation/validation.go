package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateRequired validates that a field is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateMaxLength validates the maximum length of a string
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return fmt.Errorf("%s must be at most %d characters long", fieldName, maxLength)
	}
	return nil
}

// ValidateUUID validates that a string is a valid UUID
func ValidateUUID(value, fieldName string) error {
	if _, err := uuid.Parse(value); err != nil {
		return errors.New(fieldName + " must be a valid UUID")
	}
	return nil
}

// ValidateDuration validates that a stage duration in minutes is non-negative
func ValidateDuration(minutes int, fieldName string) error {
	if minutes < 0 {
		return errors.New(fieldName + " must be non-negative")
	}
	return nil
}

// ValidateRating validates that a rating is on the 0..5 scale
func ValidateRating(value int) error {
	if value < 0 || value > 5 {
		return errors.New("rating must be between 0 and 5")
	}
	return nil
}

// ValidateVoteValue validates that a vote is a yes/no value
func ValidateVoteValue(value int) error {
	if value != 0 && value != 1 {
		return errors.New("vote value must be 0 or 1")
	}
	return nil
}

// EventValidation contains event-specific validations
type EventValidation struct{}

// ValidateEventName validates the name of an event
func (v EventValidation) ValidateEventName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	return ValidateMaxLength(name, 100, "name")
}

// GroupValidation contains group-specific validations
type GroupValidation struct{}

// ValidateGroupName validates the name of a group
func (v GroupValidation) ValidateGroupName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	return ValidateMaxLength(name, 100, "name")
}
