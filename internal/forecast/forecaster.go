package forecast

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/training"
)

// ErrModelNotTrained indicates forecasting was requested before a
// training session produced a usable capability.
var ErrModelNotTrained = errors.New("forecast: model not trained")

// Prediction is one forecast step. Value is in original target scale;
// Normalized is the raw model output fed back during recursion.
type Prediction struct {
	Step       int
	Value      float64
	Normalized float64
	Confidence float64
}

// Forecaster converts normalized model outputs back to target scale and
// scores each prediction with a heuristic confidence. It is handed the
// trained capability, the target-column standardization parameters, and
// the session history by the training orchestrator; there is no shared
// global model state.
type Forecaster struct {
	model   training.Trainable
	targets *pipeline.Standardizer
	history *training.History
	logger  zerolog.Logger
}

// New builds a forecaster for one trained session. history may be nil
// when no session has run; every forecast call then fails with
// ErrModelNotTrained.
func New(model training.Trainable, targets *pipeline.Standardizer, history *training.History, logger zerolog.Logger) *Forecaster {
	return &Forecaster{
		model:   model,
		targets: targets,
		history: history,
		logger:  logger.With().Str("component", "forecast").Logger(),
	}
}

func (f *Forecaster) ready() error {
	if f.model == nil || f.history == nil || f.history.Len() == 0 {
		return ErrModelNotTrained
	}
	if f.targets == nil || !f.targets.Fitted() {
		return fmt.Errorf("%w: target standardizer not fitted", ErrModelNotTrained)
	}
	return nil
}

// Batch predicts every held-out sequence in one capability call and
// inverse-transforms the outputs to original scale.
func (f *Forecaster) Batch(sequences []pipeline.Sequence) ([]Prediction, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	if len(sequences) == 0 {
		return nil, fmt.Errorf("%w: no sequences to predict", pipeline.ErrInsufficientData)
	}

	inputs, _ := pipeline.Tensors(sequences)
	normalized, err := f.model.Predict(inputs)
	if err != nil {
		return nil, fmt.Errorf("predict batch: %w", err)
	}

	values, err := f.targets.InverseSeries(normalized)
	if err != nil {
		return nil, err
	}

	predictions := make([]Prediction, len(values))
	for i, v := range values {
		predictions[i] = Prediction{
			Step:       i + 1,
			Value:      v,
			Normalized: normalized[i],
			Confidence: f.Confidence(v),
		}
	}
	return predictions, nil
}

// Recursive produces a multi-day-ahead forecast from the most recent
// lookback window, feeding each normalized prediction back as the next
// input. Each reported value is denormalized independently; the window
// itself stays in normalized space. Only single-column windows are
// supported: synthesizing future exogenous features would fabricate data
// the model never observed.
func (f *Forecaster) Recursive(window [][]float64, days int) ([]Prediction, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, fmt.Errorf("%w: forecast days must be positive, got %d", pipeline.ErrInsufficientData, days)
	}
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: empty window", pipeline.ErrInsufficientData)
	}
	for i, row := range window {
		if len(row) != 1 {
			return nil, fmt.Errorf("%w: recursive mode requires single-column windows, row %d has width %d", pipeline.ErrLengthMismatch, i, len(row))
		}
	}

	predictions := make([]Prediction, 0, days)
	current := cloneWindow(window)
	for step := 1; step <= days; step++ {
		normalized, next, err := f.advance(current)
		if err != nil {
			return nil, fmt.Errorf("forecast step %d: %w", step, err)
		}

		value, err := f.targets.InverseValue(0, normalized)
		if err != nil {
			return nil, err
		}

		predictions = append(predictions, Prediction{
			Step:       step,
			Value:      value,
			Normalized: normalized,
			Confidence: f.Confidence(value),
		})
		current = next
	}

	f.logger.Debug().Int("days", days).Msg("recursive forecast complete")
	return predictions, nil
}

// advance is one fold step: window in, (prediction, next window) out.
// The input window is never mutated.
func (f *Forecaster) advance(window [][]float64) (float64, [][]float64, error) {
	out, err := f.model.Predict([][][]float64{window})
	if err != nil {
		return 0, nil, err
	}
	if len(out) != 1 {
		return 0, nil, fmt.Errorf("%w: capability returned %d values for 1 sequence", pipeline.ErrLengthMismatch, len(out))
	}

	next := make([][]float64, len(window))
	copy(next, window[1:])
	next[len(next)-1] = []float64{out[0]}
	return out[0], next, nil
}

// Confidence combines an inverse function of the session's average
// validation loss with an inverse function of the predicted magnitude,
// clamped to [0.1, 0.95]. With no training history it is exactly 0.5.
// This is a documented heuristic, not a statistical guarantee.
func (f *Forecaster) Confidence(value float64) float64 {
	if f.history == nil || f.history.Len() == 0 {
		return 0.5
	}

	lossScore := 1 / (1 + f.history.AverageValLoss())
	if lossScore > 1 {
		lossScore = 1
	} else if lossScore < 0 {
		lossScore = 0
	}

	magnitude := value
	if magnitude < 0 {
		magnitude = -magnitude
	}
	magnitudeScore := 1 / (1 + 10*magnitude)

	confidence := (lossScore + magnitudeScore) / 2
	if confidence < 0.1 {
		confidence = 0.1
	} else if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func cloneWindow(window [][]float64) [][]float64 {
	out := make([][]float64, len(window))
	for i, row := range window {
		cloned := make([]float64, len(row))
		copy(cloned, row)
		out[i] = cloned
	}
	return out
}
