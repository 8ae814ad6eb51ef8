package pipeline

import "fmt"

// Sequence pairs a contiguous run of lookback feature rows with the
// target at the row immediately following the run.
type Sequence struct {
	Rows   [][]float64
	Target float64
}

// BuildSequences slices the feature rows into fixed-length lookback
// windows. For every start index i in [0, len(rows)-lookback) it emits
// rows [i, i+lookback) paired with targets[i+lookback]. The produced
// count is len(rows) - lookback.
func BuildSequences(rows [][]float64, targets []float64, lookback int) ([]Sequence, error) {
	if len(rows) != len(targets) {
		return nil, fmt.Errorf("%w: %d feature rows, %d targets", ErrLengthMismatch, len(rows), len(targets))
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: lookback must be positive, got %d", ErrInsufficientData, lookback)
	}
	if lookback >= len(rows) {
		return nil, fmt.Errorf("%w: lookback %d >= %d rows", ErrInsufficientData, lookback, len(rows))
	}

	sequences := make([]Sequence, 0, len(rows)-lookback)
	for i := 0; i+lookback < len(rows); i++ {
		window := make([][]float64, lookback)
		for j := 0; j < lookback; j++ {
			row := make([]float64, len(rows[i+j]))
			copy(row, rows[i+j])
			window[j] = row
		}
		sequences = append(sequences, Sequence{Rows: window, Target: targets[i+lookback]})
	}
	return sequences, nil
}

// BuildSeriesSequences is the single-column mode: each row is one scalar
// from a normalized series, with identical windowing logic and width 1.
func BuildSeriesSequences(values, targets []float64, lookback int) ([]Sequence, error) {
	return BuildSequences(columnize(values), targets, lookback)
}

// Tensors converts sequences into the parallel input/target form consumed
// by a trainable capability.
func Tensors(sequences []Sequence) (inputs [][][]float64, targets []float64) {
	inputs = make([][][]float64, len(sequences))
	targets = make([]float64, len(sequences))
	for i, seq := range sequences {
		inputs[i] = seq.Rows
		targets[i] = seq.Target
	}
	return inputs, targets
}
