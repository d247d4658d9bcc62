// Package foundation holds small generic helpers shared by the config and
// command layers.
package foundation

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

// FieldError represents a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (fe FieldError) Error() string {
	if fe.Field != "" {
		return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
	}
	return fe.Message
}

// ValidationResult collects field errors.
type ValidationResult struct {
	Errors []FieldError
}

// Valid reports whether no errors were collected.
func (vr ValidationResult) Valid() bool { return len(vr.Errors) == 0 }

// Add records a failure.
func (vr *ValidationResult) Add(field, code, format string, args ...any) {
	vr.Errors = append(vr.Errors, FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Check records a failure unless ok.
func (vr *ValidationResult) Check(ok bool, field, code, format string, args ...any) {
	if !ok {
		vr.Add(field, code, format, args...)
	}
}

// Merge appends the errors of other.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Errors = append(vr.Errors, other.Errors...)
}

// ToError converts the result into a config ClassifiedError, or nil when valid.
func (vr ValidationResult) ToError() error {
	if vr.Valid() {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	fields := make([]string, 0, len(vr.Errors))
	for _, err := range vr.Errors {
		messages = append(messages, err.Error())
		fields = append(fields, err.Field)
	}
	return errors.ConfigError("invalid configuration: "+strings.Join(messages, "; ")).
		WithContext("fields", fields).
		Build()
}
