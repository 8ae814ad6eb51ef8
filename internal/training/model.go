package training

import (
	"context"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
)

// EpochFunc is invoked by a capability at every epoch boundary with the
// losses for that epoch.
type EpochFunc func(epoch int, trainLoss, valLoss float64)

// Batch is the parallel input/target form a capability trains on.
type Batch struct {
	Inputs  [][][]float64
	Targets []float64
}

// BatchFromSequences converts pipeline sequences into a training batch.
func BatchFromSequences(sequences []pipeline.Sequence) Batch {
	inputs, targets := pipeline.Tensors(sequences)
	return Batch{Inputs: inputs, Targets: targets}
}

// Len returns the number of examples in the batch.
func (b Batch) Len() int {
	return len(b.Inputs)
}

// Trainable is the external sequence-model capability the orchestrator
// drives. Fit must report each epoch through onEpoch in order and honour
// Stop by halting after the current epoch. Predict returns one value per
// input sequence, in normalized target space.
type Trainable interface {
	Fit(ctx context.Context, train, val Batch, epochs int, onEpoch EpochFunc) error
	Predict(inputs [][][]float64) ([]float64, error)
	Stop()
}
