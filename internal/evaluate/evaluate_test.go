package evaluate

import (
	"errors"
	"math"
	"testing"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
)

func TestRMSE(t *testing.T) {
	got, err := RMSE([]float64{1, 2, 3}, []float64{2, 2, 5})
	if err != nil {
		t.Fatalf("rmse failed: %v", err)
	}
	want := math.Sqrt((1.0 + 0 + 4) / 3)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("rmse: got %f want %f", got, want)
	}
}

func TestRMSEIdentical(t *testing.T) {
	values := []float64{0.01, -0.02, 0.03}
	got, err := RMSE(values, values)
	if err != nil {
		t.Fatalf("rmse failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("rmse of identical slices must be 0, got %f", got)
	}
}

func TestRMSESymmetric(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1.5, 1.5, 3.5}
	ab, err := RMSE(a, b)
	if err != nil {
		t.Fatalf("rmse failed: %v", err)
	}
	ba, err := RMSE(b, a)
	if err != nil {
		t.Fatalf("rmse failed: %v", err)
	}
	if ab != ba {
		t.Fatalf("rmse must be symmetric: %f vs %f", ab, ba)
	}
}

func TestRMSEErrors(t *testing.T) {
	if _, err := RMSE([]float64{1, 2}, []float64{1}); !errors.Is(err, pipeline.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := RMSE(nil, nil); !errors.Is(err, pipeline.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
