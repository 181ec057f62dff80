package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/studyspark/scheduler-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_type", validateTaskType); err != nil {
		panic(fmt.Sprintf("failed to register task_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("study_time", validateStudyTime); err != nil {
		panic(fmt.Sprintf("failed to register study_time validator: %v", err))
	}
	if err := Validate.RegisterValidation("session_length", validateSessionLength); err != nil {
		panic(fmt.Sprintf("failed to register session_length validator: %v", err))
	}
	if err := Validate.RegisterValidation("break_frequency", validateBreakFrequency); err != nil {
		panic(fmt.Sprintf("failed to register break_frequency validator: %v", err))
	}
}

// validateTaskPriority validates that a string is a valid TaskPriority enum value
func validateTaskPriority(fl validator.FieldLevel) bool {
	return ValidateTaskPriority(fl.Field().String()) == nil
}

// validateTaskType validates that a string is a valid TaskType enum value
func validateTaskType(fl validator.FieldLevel) bool {
	return ValidateTaskType(fl.Field().String()) == nil
}

func validateStudyTime(fl validator.FieldLevel) bool {
	switch models.StudyTimePreference(fl.Field().String()) {
	case models.StudyTimeMorning, models.StudyTimeAfternoon, models.StudyTimeEvening, models.StudyTimeNight:
		return true
	default:
		return false
	}
}

func validateSessionLength(fl validator.FieldLevel) bool {
	switch models.SessionLengthPreference(fl.Field().String()) {
	case models.SessionLengthShort, models.SessionLengthMedium, models.SessionLengthLong:
		return true
	default:
		return false
	}
}

func validateBreakFrequency(fl validator.FieldLevel) bool {
	switch models.BreakFrequency(fl.Field().String()) {
	case models.BreakFrequent, models.BreakModerate, models.BreakMinimal:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskPriority validates a TaskPriority string value
func ValidateTaskPriority(value string) error {
	switch models.TaskPriority(value) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
}

// ValidateTaskType validates a TaskType string value
func ValidateTaskType(value string) error {
	switch models.TaskType(value) {
	case models.TaskTypeAcademic, models.TaskTypePersonal:
		return nil
	default:
		return fmt.Errorf("invalid type: %s (must be 'academic' or 'personal')", value)
	}
}
