package advisor

import "errors"

var (
	// ErrUnsupported is returned when the classifier does not recognize the query shape.
	ErrUnsupported = errors.New("unsupported query shape")

	// ErrNoQueryClass is returned for recognized kinds without a calibrated query class (e.g. forest).
	ErrNoQueryClass = errors.New("no calibrated query class")

	// ErrTableNotFound is returned by storage collaborators for unknown tables.
	ErrTableNotFound = errors.New("table not found")

	// ErrInsufficientData is returned when the CPU model has too few samples to predict.
	ErrInsufficientData = errors.New("insufficient calibration data")
)
