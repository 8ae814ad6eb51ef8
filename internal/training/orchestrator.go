package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrTrainingInProgress indicates a second Train call while one session is in flight.
	ErrTrainingInProgress = errors.New("training: session already in progress")
	// ErrTrainingFailed indicates a numerical failure inside the capability.
	ErrTrainingFailed = errors.New("training: capability failed")
)

// EpochRecord is one entry of the per-session training history.
type EpochRecord struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
}

// History is the ordered-by-epoch loss record for one training session.
// The orchestrator is the single writer; concurrent readers are safe.
type History struct {
	mu      sync.RWMutex
	records []EpochRecord
}

func (h *History) append(rec EpochRecord) {
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
}

// Records returns a copy of the accumulated epoch records.
func (h *History) Records() []EpochRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]EpochRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of completed epochs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Last returns the most recent record, if any.
func (h *History) Last() (EpochRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return EpochRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// AverageValLoss returns the mean validation loss across the session.
func (h *History) AverageValLoss() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return 0
	}
	sum := 0.0
	for _, rec := range h.records {
		sum += rec.ValLoss
	}
	return sum / float64(len(h.records))
}

// ProgressFunc receives each epoch record as it is appended. This is the
// only place training progress is surfaced.
type ProgressFunc func(EpochRecord)

// Orchestrator drives one multi-epoch fit of a trainable capability,
// owning the history for the lifetime of the session. It never reorders
// or coalesces epoch callbacks and never shuffles sequences across the
// train/validation boundary.
type Orchestrator struct {
	model  Trainable
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	history *History
}

// NewOrchestrator wraps a capability instance.
func NewOrchestrator(model Trainable, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		model:  model,
		logger: logger.With().Str("component", "training").Logger(),
	}
}

// Model exposes the wrapped capability for downstream forecasting.
func (o *Orchestrator) Model() Trainable {
	return o.model
}

// History returns the history of the current or most recent session.
func (o *Orchestrator) History() *History {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history
}

// Train runs one training session. The history is reset at session
// start and appended to at every epoch boundary, after which progress is
// invoked with the same values. Cancelling ctx requests a cooperative
// stop at the next epoch boundary and returns the partial history
// without error. Capability failures and non-finite losses surface as
// ErrTrainingFailed with the last valid history attached.
func (o *Orchestrator) Train(ctx context.Context, train, val Batch, epochs int, progress ProgressFunc) (*History, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("%w: empty training batch", ErrTrainingFailed)
	}
	if epochs <= 0 {
		return nil, fmt.Errorf("%w: epochs must be positive, got %d", ErrTrainingFailed, epochs)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrTrainingInProgress
	}
	o.running = true
	history := &History{}
	o.history = history
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	o.logger.Info().
		Int("train_sequences", train.Len()).
		Int("val_sequences", val.Len()).
		Int("epochs", epochs).
		Msg("training session started")

	diverged := false
	cancelled := false
	onEpoch := func(epoch int, trainLoss, valLoss float64) {
		if diverged || cancelled {
			return
		}
		if !isFinite(trainLoss) || !isFinite(valLoss) {
			diverged = true
			o.logger.Error().Int("epoch", epoch).Msg("non-finite loss, stopping")
			o.model.Stop()
			return
		}

		rec := EpochRecord{Epoch: epoch, TrainLoss: trainLoss, ValLoss: valLoss}
		history.append(rec)
		if progress != nil {
			progress(rec)
		}
		o.logger.Debug().
			Int("epoch", epoch).
			Float64("train_loss", trainLoss).
			Float64("val_loss", valLoss).
			Msg("epoch complete")

		// Cancellation is cooperative and checked only between epochs.
		select {
		case <-ctx.Done():
			cancelled = true
			o.model.Stop()
		default:
		}
	}

	err := o.model.Fit(ctx, train, val, epochs, onEpoch)
	switch {
	case diverged:
		return history, fmt.Errorf("%w: non-finite loss after %d epochs", ErrTrainingFailed, history.Len())
	case cancelled:
		o.logger.Warn().Int("epochs_completed", history.Len()).Msg("training cancelled")
		return history, nil
	case err != nil && errors.Is(err, context.Canceled):
		return history, nil
	case err != nil:
		return history, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
	}

	o.logger.Info().Int("epochs_completed", history.Len()).Msg("training session finished")
	return history, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
