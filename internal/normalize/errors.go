package normalize

import (
	"fmt"
)

// MalformedRowError indicates a row that cannot become a line item.
type MalformedRowError struct {
	Err    error
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed row: %s: %v", e.Reason, e.Err)
	}
	return "malformed row: " + e.Reason
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// UnparseableNumberError indicates a numeric cell that matched no known format.
type UnparseableNumberError struct {
	Column string
	Value  string
}

func (e *UnparseableNumberError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("cannot parse %q as a number", e.Value)
	}
	return fmt.Sprintf("cannot parse %s %q as a number", e.Column, e.Value)
}
