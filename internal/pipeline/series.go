package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Canonical signal names the feature engineer expects in a RawSeries.
const (
	SignalPrice      = "price"
	SignalVolatility = "volatility"
	SignalYield      = "yield"
	SignalCurrency   = "currency"
	SignalVolume     = "volume"
)

// RequiredSignals lists every signal the full feature pipeline consumes.
func RequiredSignals() []string {
	return []string{SignalPrice, SignalVolatility, SignalYield, SignalCurrency, SignalVolume}
}

// RawSeries holds chronologically aligned daily signals keyed by name.
// All signals must share identical length; one entry per trading day.
type RawSeries struct {
	Dates   []time.Time
	Signals map[string][]float64
}

// Len returns the number of trading days in the series.
func (s RawSeries) Len() int {
	for _, values := range s.Signals {
		return len(values)
	}
	return 0
}

// Signal returns the named signal or ErrMissingSignal.
func (s RawSeries) Signal(name string) ([]float64, error) {
	values, ok := s.Signals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingSignal, name)
	}
	return values, nil
}

// Validate checks alignment and rejects non-finite entries. Missing or
// invalid values are never imputed.
func (s RawSeries) Validate() error {
	if len(s.Signals) == 0 {
		return fmt.Errorf("%w: series has no signals", ErrInsufficientData)
	}

	names := make([]string, 0, len(s.Signals))
	for name := range s.Signals {
		names = append(names, name)
	}
	sort.Strings(names)

	length := -1
	for _, name := range names {
		values := s.Signals[name]
		if length == -1 {
			length = len(values)
		} else if len(values) != length {
			return fmt.Errorf("%w: signal %q has %d entries, expected %d", ErrLengthMismatch, name, len(values), length)
		}
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: signal %q has non-finite value at index %d", ErrInsufficientData, name, i)
			}
		}
	}

	if len(s.Dates) > 0 && len(s.Dates) != length {
		return fmt.Errorf("%w: %d dates for %d observations", ErrLengthMismatch, len(s.Dates), length)
	}
	return nil
}

// RequireSignals fails with ErrMissingSignal when any named signal is absent.
func (s RawSeries) RequireSignals(names []string) error {
	for _, name := range names {
		if _, ok := s.Signals[name]; !ok {
			return fmt.Errorf("%w: %q (have %d signals)", ErrMissingSignal, name, len(s.Signals))
		}
	}
	return nil
}
