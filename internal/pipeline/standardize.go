package pipeline

import (
	"fmt"
	"math"
)

// Standardizer applies per-column z-score normalization. Parameters are
// computed once by Fit and are immutable afterwards; reads may happen
// concurrently but never alongside a Fit.
type Standardizer struct {
	mean   []float64
	std    []float64
	fitted bool
}

// Fit computes per-column mean and standard deviation from the rows
// passed in. A column with zero deviation is clamped to 1 so transforms
// never divide by zero. Callers wanting leakage-free behaviour must pass
// only the training-eligible rows.
func (s *Standardizer) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: cannot fit standardizer on empty matrix", ErrInsufficientData)
	}
	width := len(rows[0])

	mean := make([]float64, width)
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d columns, expected %d", ErrLengthMismatch, i, len(row), width)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}

	std := make([]float64, width)
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}

	s.mean = mean
	s.std = std
	s.fitted = true
	return nil
}

// FitSeries fits on a single column of values.
func (s *Standardizer) FitSeries(values []float64) error {
	return s.Fit(columnize(values))
}

// Transform applies (x-mean)/std elementwise, returning new rows.
func (s *Standardizer) Transform(rows [][]float64) ([][]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.mean) {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrLengthMismatch, i, len(row), len(s.mean))
		}
		normalized := make([]float64, len(row))
		for j, v := range row {
			normalized[j] = (v - s.mean[j]) / s.std[j]
		}
		out[i] = normalized
	}
	return out, nil
}

// InverseTransform is the algebraic inverse of Transform.
func (s *Standardizer) InverseTransform(rows [][]float64) ([][]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.mean) {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrLengthMismatch, i, len(row), len(s.mean))
		}
		denormalized := make([]float64, len(row))
		for j, v := range row {
			denormalized[j] = v*s.std[j] + s.mean[j]
		}
		out[i] = denormalized
	}
	return out, nil
}

// TransformSeries normalizes a single column of values.
func (s *Standardizer) TransformSeries(values []float64) ([]float64, error) {
	rows, err := s.Transform(columnize(values))
	if err != nil {
		return nil, err
	}
	return flatten(rows), nil
}

// InverseSeries denormalizes a single column of values.
func (s *Standardizer) InverseSeries(values []float64) ([]float64, error) {
	rows, err := s.InverseTransform(columnize(values))
	if err != nil {
		return nil, err
	}
	return flatten(rows), nil
}

// InverseValue denormalizes one value from the given column.
func (s *Standardizer) InverseValue(col int, v float64) (float64, error) {
	if !s.fitted {
		return 0, ErrNotFitted
	}
	if col < 0 || col >= len(s.mean) {
		return 0, fmt.Errorf("%w: column %d out of %d", ErrLengthMismatch, col, len(s.mean))
	}
	return v*s.std[col] + s.mean[col], nil
}

// Fitted reports whether parameters are available.
func (s *Standardizer) Fitted() bool {
	return s.fitted
}

// Params returns copies of the fitted mean and standard deviation.
func (s *Standardizer) Params() (mean, std []float64) {
	mean = make([]float64, len(s.mean))
	std = make([]float64, len(s.std))
	copy(mean, s.mean)
	copy(std, s.std)
	return mean, std
}

func columnize(values []float64) [][]float64 {
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v}
	}
	return rows
}

func flatten(rows [][]float64) []float64 {
	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = row[0]
	}
	return values
}
