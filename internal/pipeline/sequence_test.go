package pipeline

import (
	"errors"
	"testing"
)

func TestBuildSequences(t *testing.T) {
	rows := make([][]float64, 10)
	targets := make([]float64, 10)
	for i := range rows {
		rows[i] = []float64{float64(i)}
		targets[i] = float64(i) * 10
	}

	sequences, err := BuildSequences(rows, targets, 3)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(sequences) != 7 {
		t.Fatalf("expected 7 sequences, got %d", len(sequences))
	}

	for i, seq := range sequences {
		if len(seq.Rows) != 3 {
			t.Fatalf("sequence %d has %d rows", i, len(seq.Rows))
		}
		for j, row := range seq.Rows {
			if row[0] != float64(i+j) {
				t.Fatalf("sequence %d row %d: got %f want %d", i, j, row[0], i+j)
			}
		}
		if seq.Target != targets[i+3] {
			t.Fatalf("sequence %d target: got %f want %f", i, seq.Target, targets[i+3])
		}
	}
}

func TestBuildSequencesCopiesRows(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}, {4}}
	targets := []float64{10, 20, 30, 40}

	sequences, err := BuildSequences(rows, targets, 2)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	rows[0][0] = -99
	if sequences[0].Rows[0][0] != 1 {
		t.Fatal("sequence windows must not alias the source rows")
	}
}

func TestBuildSequencesErrors(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}}
	targets := []float64{1, 2, 3}

	if _, err := BuildSequences(rows, targets[:2], 1); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := BuildSequences(rows, targets, 0); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for zero lookback, got %v", err)
	}
	if _, err := BuildSequences(rows, targets, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData when lookback consumes all rows, got %v", err)
	}
}

func TestBuildSeriesSequences(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5}

	sequences, err := BuildSeriesSequences(values, values, 2)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(sequences) != 3 {
		t.Fatalf("expected 3 sequences, got %d", len(sequences))
	}
	if len(sequences[0].Rows[0]) != 1 {
		t.Fatalf("series sequences must be single-column, got width %d", len(sequences[0].Rows[0]))
	}
	if sequences[0].Target != 0.3 {
		t.Fatalf("unexpected target: %f", sequences[0].Target)
	}
}

func TestTensors(t *testing.T) {
	sequences := []Sequence{
		{Rows: [][]float64{{1}, {2}}, Target: 3},
		{Rows: [][]float64{{2}, {3}}, Target: 4},
	}

	inputs, targets := Tensors(sequences)
	if len(inputs) != 2 || len(targets) != 2 {
		t.Fatalf("unexpected lengths: %d inputs, %d targets", len(inputs), len(targets))
	}
	if inputs[1][0][0] != 2 || targets[1] != 4 {
		t.Fatal("tensor conversion mismatch")
	}
}
