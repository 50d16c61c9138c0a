package domain

import "errors"

// Error taxonomy for ingestion and aggregation. Call sites wrap these with
// context via fmt.Errorf("...: %w", ...); match them with errors.Is.
var (
	// ErrInputFormat reports an unparseable date, a non-numeric cell, an
	// out-of-order date index, or a column layout that does not fit the kind.
	ErrInputFormat = errors.New("input format")

	// ErrMissingVariable reports that none of the accepted unit columns for a
	// kind are present in the raw table.
	ErrMissingVariable = errors.New("missing variable")

	// ErrDimensionMismatch reports station series of unequal length or a
	// station count that does not match the series supplied.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrDateAlignment reports an empty date window, a window outside a
	// matrix index, or station series whose date axes differ.
	ErrDateAlignment = errors.New("date alignment")
)
