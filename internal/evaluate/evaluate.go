// Package evaluate provides stateless error metrics for held-out
// predictions.
package evaluate

import (
	"fmt"
	"math"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
)

// RMSE is sqrt(mean((actual-predicted)^2)). It fails when the slices
// have different lengths or are empty.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("%w: %d actual values, %d predicted", pipeline.ErrLengthMismatch, len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("%w: no values to score", pipeline.ErrInsufficientData)
	}

	sum := 0.0
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}
