package pricing

import "fmt"

// ValidationError identifies the offending field so callers can surface the
// failure inline next to the input. Index is the line item position, or -1
// for configuration fields.
type ValidationError struct {
	Field   string
	Index   int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("pricing: line %d: %s %s", e.Index+1, e.Field, e.Message)
	}
	return fmt.Sprintf("pricing: %s %s", e.Field, e.Message)
}

func newItemError(field string, index int, message string) *ValidationError {
	return &ValidationError{Field: field, Index: index, Message: message}
}

func newFieldError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Message: message}
}
