package provider

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateConfigFields checks conf against the required fields of a form.
// Failures are configuration errors and happen before any network call.
func ValidateConfigFields(name Name, conf Config, fields []FormField) error {
	for _, field := range fields {
		value := strings.TrimSpace(conf[field.Key])

		if value == "" {
			if field.Required {
				return ConfigurationError(name, fmt.Sprintf("required field '%s' is missing", field.Key))
			}
			continue
		}

		if err := validateFieldPattern(name, field, value); err != nil {
			return err
		}

		if err := validateFieldLength(name, field, value); err != nil {
			return err
		}
	}

	return nil
}

// validateFieldPattern validates field against regex pattern
func validateFieldPattern(name Name, field FormField, value string) error {
	if field.Pattern == "" {
		return nil
	}

	matched, err := regexp.MatchString(field.Pattern, value)
	if err != nil {
		return ConfigurationError(name, fmt.Sprintf("invalid pattern for field '%s': %v", field.Key, err))
	}

	if !matched {
		return ConfigurationError(name, fmt.Sprintf("field '%s' does not match required pattern", field.Key))
	}

	return nil
}

// validateFieldLength validates field length constraints
func validateFieldLength(name Name, field FormField, value string) error {
	if field.MinLength > 0 && len(value) < field.MinLength {
		return ConfigurationError(name, fmt.Sprintf("field '%s' must be at least %d characters", field.Key, field.MinLength))
	}

	if field.MaxLength > 0 && len(value) > field.MaxLength {
		return ConfigurationError(name, fmt.Sprintf("field '%s' must not exceed %d characters", field.Key, field.MaxLength))
	}

	return nil
}
