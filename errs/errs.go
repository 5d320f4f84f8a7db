// Package errs holds the error kinds shared by every stage of the forecasting pipeline. Callers
// match them with errors.Is; stages wrap them with the series, column, or model specification
// that produced the failure.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySeries is returned when a series has no non-missing observation.
	ErrEmptySeries = errors.New("no non-missing observation in series")

	// ErrConfiguration covers unmapped frequencies, invalid model specifications, and
	// contradictory selection flags.
	ErrConfiguration = errors.New("configuration error")

	// ErrBackendExecution is returned when an engine fails or returns a shape that cannot
	// be assembled into a result.
	ErrBackendExecution = errors.New("backend execution error")

	// ErrTypeMismatch is returned by the accuracy engine for unsupported operand combinations.
	ErrTypeMismatch = errors.New("type mismatch")
)

// ColumnError attaches the column name and model specification to a failure of a single
// series task.
type ColumnError struct {
	Column string
	Spec   string
	Err    error
}

func (c *ColumnError) Error() string {
	if c.Spec == "" {
		return fmt.Sprintf("column %q: %v", c.Column, c.Err)
	}
	return fmt.Sprintf("column %q, model %q: %v", c.Column, c.Spec, c.Err)
}

func (c *ColumnError) Unwrap() error {
	return c.Err
}

// Backend wraps an engine failure with the model specification that triggered it.
func Backend(spec string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendExecution) {
		return err
	}
	return fmt.Errorf("model %q: %w: %w", spec, ErrBackendExecution, err)
}
