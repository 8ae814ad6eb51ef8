package pipeline

import (
	"fmt"
	"math"
)

// Split holds three disjoint, order-preserving partitions of a sequence
// collection. Every train index precedes every validation index, which
// precedes every test index; the partitions are never shuffled.
type Split struct {
	Train      []Sequence
	Validation []Sequence
	Test       []Sequence
}

// SplitSequences partitions chronologically: train takes the first
// floor(n*trainRatio) sequences, validation the next floor(n*valRatio),
// test the remainder.
func SplitSequences(sequences []Sequence, trainRatio, valRatio float64) (Split, error) {
	if trainRatio < 0 || valRatio < 0 || trainRatio+valRatio > 1 {
		return Split{}, fmt.Errorf("%w: train=%.3f val=%.3f", ErrInvalidRatio, trainRatio, valRatio)
	}

	n := len(sequences)
	trainEnd := int(math.Floor(float64(n) * trainRatio))
	valEnd := trainEnd + int(math.Floor(float64(n)*valRatio))

	return Split{
		Train:      sequences[:trainEnd],
		Validation: sequences[trainEnd:valEnd],
		Test:       sequences[valEnd:],
	}, nil
}
