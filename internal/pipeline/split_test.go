package pipeline

import (
	"errors"
	"testing"
)

func makeSequences(n int) []Sequence {
	sequences := make([]Sequence, n)
	for i := range sequences {
		sequences[i] = Sequence{Rows: [][]float64{{float64(i)}}, Target: float64(i)}
	}
	return sequences
}

func TestSplitSequences(t *testing.T) {
	split, err := SplitSequences(makeSequences(10), 0.7, 0.15)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	if len(split.Train) != 7 || len(split.Validation) != 1 || len(split.Test) != 2 {
		t.Fatalf("unexpected partition sizes: %d/%d/%d", len(split.Train), len(split.Validation), len(split.Test))
	}

	// Chronological order: every train target precedes every validation
	// target, which precedes every test target.
	if split.Train[6].Target >= split.Validation[0].Target {
		t.Fatal("train must precede validation")
	}
	if split.Validation[0].Target >= split.Test[0].Target {
		t.Fatal("validation must precede test")
	}

	total := len(split.Train) + len(split.Validation) + len(split.Test)
	if total != 10 {
		t.Fatalf("partitions must cover every sequence, got %d", total)
	}
}

func TestSplitSequencesOrderPreserved(t *testing.T) {
	split, err := SplitSequences(makeSequences(20), 0.6, 0.2)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	i := 0
	for _, part := range [][]Sequence{split.Train, split.Validation, split.Test} {
		for _, seq := range part {
			if seq.Target != float64(i) {
				t.Fatalf("sequence order disturbed at %d: got %f", i, seq.Target)
			}
			i++
		}
	}
}

func TestSplitSequencesInvalidRatio(t *testing.T) {
	cases := []struct {
		train, val float64
	}{
		{-0.1, 0.5},
		{0.5, -0.1},
		{0.8, 0.3},
	}
	for _, tc := range cases {
		if _, err := SplitSequences(makeSequences(10), tc.train, tc.val); !errors.Is(err, ErrInvalidRatio) {
			t.Fatalf("train=%f val=%f: expected ErrInvalidRatio, got %v", tc.train, tc.val, err)
		}
	}
}

func TestSplitSequencesEmpty(t *testing.T) {
	split, err := SplitSequences(nil, 0.7, 0.15)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(split.Train)+len(split.Validation)+len(split.Test) != 0 {
		t.Fatal("empty input must yield empty partitions")
	}
}
