package errors

import (
	"fmt"
	"strings"
)

// FieldValidationError describes a single invalid configuration field.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []*FieldValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	messages := make([]string, 0, len(vec.Errors))
	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("validation failed with %d errors: %s", len(vec.Errors), strings.Join(messages, "; "))
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Errors = append(vec.Errors, NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ToBuildError converts the collection into a configuration error.
func (vec *ValidationErrorCollection) ToBuildError() *BuildError {
	if !vec.HasErrors() {
		return nil
	}

	err := NewConfigError(ErrCodeConfigInvalid, "invalid configuration")
	err.Cause = vec
	for _, fe := range vec.Errors {
		err.WithContext(fe.FieldName, fe.FieldValue)
	}

	return err
}
