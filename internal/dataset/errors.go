package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader indicates a missing, blank or duplicated header name.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrFieldCount indicates a row whose field count differs from the header.
	ErrFieldCount = errors.New("column count mismatch")
	// ErrNotNumeric indicates a cell that is neither numeric nor a missing marker.
	ErrNotNumeric = errors.New("non-numeric value")
	// ErrNoRows indicates a file with a header but no data rows.
	ErrNoRows = errors.New("no data rows")
)

// InputError reports a problem with the input file itself. Loading fails fast
// on the first InputError and returns no partial table.
type InputError struct {
	Path   string
	Line   int    // 1-based line or sheet row; 0 when not tied to a row
	Column string // column name when known
	Err    error
}

func (e *InputError) Error() string {
	if e == nil {
		return "input error"
	}
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("%s:%d: column %q: %v", e.Path, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	case e.Column != "":
		return fmt.Sprintf("%s: column %q: %v", e.Path, e.Column, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *InputError) Unwrap() error { return e.Err }
