package pipeline

import "errors"

var (
	// ErrMissingSignal indicates a required named signal is absent from the raw series.
	ErrMissingSignal = errors.New("pipeline: required signal missing")
	// ErrInsufficientData indicates there are not enough rows to satisfy the requested window.
	ErrInsufficientData = errors.New("pipeline: insufficient data")
	// ErrInvalidRatio indicates the split ratios do not describe a valid partition.
	ErrInvalidRatio = errors.New("pipeline: invalid split ratios")
	// ErrNotFitted indicates a transform was requested before Fit.
	ErrNotFitted = errors.New("pipeline: standardizer not fitted")
	// ErrLengthMismatch indicates two aligned slices have different lengths.
	ErrLengthMismatch = errors.New("pipeline: length mismatch")
)
