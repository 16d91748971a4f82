package costmodel

import "fmt"

// ValidationError reports a malformed recipe or device description.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a material or process missing from the property table.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// DivisionError reports a non-positive performance denominator.
type DivisionError struct {
	Quantity string
	Value    float64
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("cannot normalize by %s = %v: must be greater than 0", e.Quantity, e.Value)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
