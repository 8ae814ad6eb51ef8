package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// LinearModel is the bundled reference capability: a linear map over the
// flattened lookback window, trained by full-batch gradient descent on
// mean squared error. It is deterministic (zero-initialised weights, no
// shuffling) and exists so the pipeline runs end-to-end without an
// external model; any Trainable can be swapped in.
type LinearModel struct {
	learningRate float64
	weights      []float64
	bias         float64
	stop         atomic.Bool
	fitted       bool
}

// NewLinearModel constructs the reference capability.
func NewLinearModel(learningRate float64) *LinearModel {
	if learningRate <= 0 {
		learningRate = 0.01
	}
	return &LinearModel{learningRate: learningRate}
}

// Fit trains for up to epochs passes over the training batch, reporting
// losses through onEpoch after every pass. Stop halts after the current
// epoch.
func (m *LinearModel) Fit(ctx context.Context, train, val Batch, epochs int, onEpoch EpochFunc) error {
	if train.Len() == 0 {
		return errors.New("linear model: empty training batch")
	}
	width := flatWidth(train.Inputs[0])
	if width == 0 {
		return errors.New("linear model: empty input window")
	}

	m.stop.Store(false)
	m.weights = make([]float64, width)
	m.bias = 0
	m.fitted = true

	flatTrain := flattenAll(train.Inputs)
	flatVal := flattenAll(val.Inputs)

	grad := make([]float64, width)
	for epoch := 1; epoch <= epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0
		trainLoss := 0.0
		for i, x := range flatTrain {
			pred := m.predictFlat(x)
			residual := pred - train.Targets[i]
			trainLoss += residual * residual
			for j, v := range x {
				grad[j] += residual * v
			}
			biasGrad += residual
		}
		n := float64(len(flatTrain))
		trainLoss /= n
		for j := range grad {
			m.weights[j] -= m.learningRate * grad[j] / n
		}
		m.bias -= m.learningRate * biasGrad / n

		valLoss := trainLoss
		if len(flatVal) > 0 {
			valLoss = 0
			for i, x := range flatVal {
				residual := m.predictFlat(x) - val.Targets[i]
				valLoss += residual * residual
			}
			valLoss /= float64(len(flatVal))
		}

		if onEpoch != nil {
			onEpoch(epoch, trainLoss, valLoss)
		}
		if m.stop.Load() {
			return nil
		}
		if math.IsNaN(trainLoss) || math.IsInf(trainLoss, 0) {
			return fmt.Errorf("linear model: diverged at epoch %d", epoch)
		}
	}
	return nil
}

// Predict returns one normalized-space value per input sequence.
func (m *LinearModel) Predict(inputs [][][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, errors.New("linear model: not fitted")
	}
	out := make([]float64, len(inputs))
	for i, window := range inputs {
		x := flattenWindow(window)
		if len(x) != len(m.weights) {
			return nil, fmt.Errorf("linear model: input %d has width %d, expected %d", i, len(x), len(m.weights))
		}
		out[i] = m.predictFlat(x)
	}
	return out, nil
}

// Stop requests a halt after the current epoch.
func (m *LinearModel) Stop() {
	m.stop.Store(true)
}

func (m *LinearModel) predictFlat(x []float64) float64 {
	sum := m.bias
	for j, v := range x {
		sum += m.weights[j] * v
	}
	return sum
}

func flatWidth(window [][]float64) int {
	width := 0
	for _, row := range window {
		width += len(row)
	}
	return width
}

func flattenWindow(window [][]float64) []float64 {
	out := make([]float64, 0, flatWidth(window))
	for _, row := range window {
		out = append(out, row...)
	}
	return out
}

func flattenAll(inputs [][][]float64) [][]float64 {
	out := make([][]float64, len(inputs))
	for i, window := range inputs {
		out[i] = flattenWindow(window)
	}
	return out
}

var _ Trainable = (*LinearModel)(nil)
