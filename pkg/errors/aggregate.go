package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// AggregateError collects the failures of a batch operation.
type AggregateError struct {
	merr *multierror.Error
}

func (e *AggregateError) Error() string {
	return e.merr.Error()
}

// Errors returns the collected errors in the order they occurred.
func (e *AggregateError) Errors() []error {
	return e.merr.WrappedErrors()
}

// Unwrap lets errors.Is and errors.As inspect every collected error.
func (e *AggregateError) Unwrap() []error {
	return e.merr.WrappedErrors()
}

// Aggregate returns nil for no errors, the error itself for exactly one, and
// an *AggregateError otherwise. Nil entries are ignored and nested
// aggregates are flattened.
func Aggregate(errs ...error) error {
	var merr *multierror.Error
	for _, err := range errs {
		if agg, ok := err.(*AggregateError); ok && agg != nil {
			merr = multierror.Append(merr, agg.Errors()...)
			continue
		}
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr == nil {
		return nil
	}
	if len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	merr.ErrorFormat = formatAggregate
	return &AggregateError{merr: merr}
}

func formatAggregate(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, "  * "+err.Error())
	}
	return fmt.Sprintf("%d errors occurred:\n%s", len(errs), strings.Join(lines, "\n"))
}
