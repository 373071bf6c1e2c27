package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeCompiler   ErrorType = "compiler"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeTemplateNotFound   = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeNoTemplateForFile  = "ERR_NO_TEMPLATE_FOR_FILE"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeCompileFailed      = "ERR_COMPILE_FAILED"
	ErrCodeCompilerNotFound   = "ERR_COMPILER_NOT_FOUND"
	ErrCodeIO                 = "ERR_IO"
	ErrCodeUnknownAction      = "ERR_UNKNOWN_ACTION"
	ErrCodeValidationFailed   = "ERR_VALIDATION_FAILED"
	ErrCodeInternalError      = "ERR_INTERNAL"
)

// BuildError is a structured error carrying the file and plugin it relates to.
type BuildError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	FilePath    string
	Plugin      string
	Recoverable bool
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Plugin != "" {
		parts = append(parts, "plugin:"+e.Plugin)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Is matches another BuildError with the same type and code.
func (e *BuildError) Is(target error) bool {
	var t *BuildError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the file the error relates to.
func (e *BuildError) WithFile(filePath string) *BuildError {
	e.FilePath = filePath

	return e
}

// WithPlugin records the plugin that produced the error.
func (e *BuildError) WithPlugin(plugin string) *BuildError {
	e.Plugin = plugin

	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuildError {
	return &BuildError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewCompilerError creates an error for a failed transformation.
func NewCompilerError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeCompiler,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BuildError {
	return &BuildError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// IsCompilerError checks if an error came from a compiler or plugin.
func IsCompilerError(err error) bool {
	return hasType(err, ErrorTypeCompiler)
}

// IsIOError checks if an error is an I/O error.
func IsIOError(err error) bool {
	return hasType(err, ErrorTypeIO)
}

func hasType(err error, t ErrorType) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// ErrTemplateNotFound is returned when the input tree holds no template file.
func ErrTemplateNotFound(expected string) *BuildError {
	return NewConfigError(
		ErrCodeTemplateNotFound,
		fmt.Sprintf("template file %s not found", expected),
	).WithFile(expected)
}

// ErrNoTemplateForFile is returned when no directory between file and the
// input root defines a template.
func ErrNoTemplateForFile(file, expected string) *BuildError {
	return NewConfigError(
		ErrCodeNoTemplateForFile,
		fmt.Sprintf("no template governs this file, expected one at %s or in a parent directory", expected),
	).WithFile(file).WithContext("expected", expected)
}

// ErrCompileFailed wraps a compiler or plugin failure with the file it was processing.
func ErrCompileFailed(file, plugin string, cause error) *BuildError {
	return NewCompilerError(ErrCodeCompileFailed, "compilation failed", cause).
		WithFile(file).
		WithPlugin(plugin)
}

// ErrIO wraps a filesystem failure.
func ErrIO(op, path string, cause error) *BuildError {
	return NewIOError(ErrCodeIO, op+" failed", cause).WithFile(path)
}
