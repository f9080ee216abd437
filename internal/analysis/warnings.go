package analysis

import "errors"

var (
	// ErrLengthMismatch indicates paired series of different lengths.
	ErrLengthMismatch = errors.New("series length mismatch")
	// ErrOutOfSetCategory indicates a categorical source value outside the
	// configured level set. It is only returned in strict mode; otherwise the
	// condition is reported as a WarnOutOfSetCategory warning.
	ErrOutOfSetCategory = errors.New("value outside known categories")
)

// WarningKind classifies a data quality warning.
type WarningKind string

const (
	WarnMissingValues       WarningKind = "missing_values"
	WarnNearZeroDenominator WarningKind = "near_zero_denominator"
	WarnOutOfSetCategory    WarningKind = "out_of_set_category"
	WarnZeroVariance        WarningKind = "zero_variance"
	WarnResidualIdentity    WarningKind = "residual_identity"
	WarnIncompleteRows      WarningKind = "incomplete_rows"
	WarnInsufficientData    WarningKind = "insufficient_data"
	WarnNonFinite           WarningKind = "non_finite"
)

// maxListedRows caps the row indices carried by a single warning.
const maxListedRows = 20

// Warning is a data quality finding. Warnings are reported alongside results
// and never abort an analysis.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Column  string      `json:"column,omitempty"`
	Count   int         `json:"count"`
	Rows    []int       `json:"rows,omitempty"` // 0-based row indices, first maxListedRows only
	Message string      `json:"message"`
}

func (w Warning) String() string { return w.Message }

func listRows(rows []int) []int {
	if len(rows) > maxListedRows {
		rows = rows[:maxListedRows]
	}
	return append([]int(nil), rows...)
}
