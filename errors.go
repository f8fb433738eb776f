package goflot

import (
	"errors"
	"fmt"
)

// ErrMissingData is returned when a pair series contains no data points.
// Scalar series (single values, e.g. pie slices) are exempt.
var ErrMissingData = errors.New("series contains no data points")

// ErrNoData is returned when bar width calculation is attempted but no
// series in the graph carries any data points to derive a width from.
var ErrNoData = errors.New("no data points available to calculate bar width")

// DuplicateLabelError is returned when a new series is labeled with a label
// that is already in use by another series on the same graph.
type DuplicateLabelError struct {
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("series label %q is already in use", e.Label)
}
