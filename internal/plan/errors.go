package plan

import (
	"fmt"

	"vidpress/internal/services"
)

// InvalidPlanError reports the first structural violation found in a plan.
// It is the only plan-level error that aborts a run.
type InvalidPlanError struct {
	Field string
	// Section is the 1-based section index, or 0 for plan-level fields.
	Section int
	Reason  string
	Err     error
}

func (e *InvalidPlanError) Error() string {
	location := e.Field
	if e.Section > 0 {
		location = fmt.Sprintf("sections[%d].%s", e.Section, e.Field)
	}
	msg := "invalid plan"
	if location != "" {
		msg += ": " + location
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidPlanError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrValidation, e.Err}
	}
	return []error{services.ErrValidation}
}

func invalid(field string, section int, reason string) *InvalidPlanError {
	return &InvalidPlanError{Field: field, Section: section, Reason: reason}
}
