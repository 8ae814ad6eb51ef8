package pipeline

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func testSeries(n int) RawSeries {
	signals := map[string][]float64{
		SignalPrice:      make([]float64, n),
		SignalVolatility: make([]float64, n),
		SignalYield:      make([]float64, n),
		SignalCurrency:   make([]float64, n),
		SignalVolume:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t := float64(i)
		signals[SignalPrice][i] = 100 + 2*math.Sin(t/3) + t/10
		signals[SignalVolatility][i] = 15 + math.Cos(t/5)
		signals[SignalYield][i] = 2.5 + 0.01*t
		signals[SignalCurrency][i] = 95 + math.Sin(t/7)
		signals[SignalVolume][i] = 1e6 + 1e4*t
	}
	return RawSeries{Signals: signals}
}

func TestLogReturns(t *testing.T) {
	prices := []float64{100, 101, 102, 101, 103, 105}
	returns := LogReturns(prices)

	if len(returns) != len(prices) {
		t.Fatalf("expected %d returns, got %d", len(prices), len(returns))
	}
	if returns[0] != 0 {
		t.Fatalf("return at index 0 should be 0, got %f", returns[0])
	}
	if !almostEqual(returns[1], math.Log(101.0/100.0), 1e-12) {
		t.Fatalf("unexpected return at index 1: %f", returns[1])
	}
	if !almostEqual(returns[3], math.Log(101.0/102.0), 1e-12) {
		t.Fatalf("unexpected return at index 3: %f", returns[3])
	}
}

func TestLogReturnsNonPositive(t *testing.T) {
	returns := LogReturns([]float64{100, 0, 100})
	if returns[1] != 0 || returns[2] != 0 {
		t.Fatalf("non-positive levels should yield 0, got %v", returns)
	}
}

func TestForwardReturn(t *testing.T) {
	prices := []float64{100, 101, 102, 101, 103, 105}
	got := ForwardReturn(prices, 0, 5)
	if !almostEqual(got, math.Log(105.0/100.0), 1e-12) {
		t.Fatalf("unexpected forward return: %f", got)
	}
}

func TestRSIBounds(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + 10*math.Sin(float64(i))
	}
	for i := range values {
		rsi := RSI(values, i, 14)
		if rsi < 0 || rsi > 100 {
			t.Fatalf("RSI out of bounds at %d: %f", i, rsi)
		}
	}
}

func TestRSINeutralWarmup(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := RSI(values, 2, 14); got != 50 {
		t.Fatalf("RSI before window fills should be 50, got %f", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(100 + i)
	}
	if got := RSI(values, 20, 14); got != 100 {
		t.Fatalf("RSI with zero average loss should be 100, got %f", got)
	}
}

func TestRollingVolatilityWarmup(t *testing.T) {
	returns := []float64{0, 0.01, -0.02, 0.03, 0.01}
	if got := RollingVolatility(returns, 2, 3); got != 0 {
		t.Fatalf("volatility before window should be 0, got %f", got)
	}
	if got := RollingVolatility(returns, 3, 3); got == 0 {
		t.Fatal("volatility at window boundary should be defined")
	}
}

func TestMomentum(t *testing.T) {
	values := []float64{100, 110, 121}
	if got := Momentum(values, 2, 2); !almostEqual(got, 0.21, 1e-12) {
		t.Fatalf("unexpected momentum: %f", got)
	}
	if got := Momentum(values, 1, 2); got != 0 {
		t.Fatalf("momentum before window should be 0, got %f", got)
	}
}

func TestTransformMissingSignal(t *testing.T) {
	series := testSeries(60)
	delete(series.Signals, SignalVolume)

	engineer := NewFeatureEngineer(FeatureConfig{})
	if _, err := engineer.Transform(series); !errors.Is(err, ErrMissingSignal) {
		t.Fatalf("expected ErrMissingSignal, got %v", err)
	}
}

func TestTransformInsufficientData(t *testing.T) {
	engineer := NewFeatureEngineer(FeatureConfig{})
	if _, err := engineer.Transform(testSeries(15)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTransformAlignment(t *testing.T) {
	series := testSeries(80)
	cfg := FeatureConfig{Horizon: 5, VolatilityWindow: 10, SMAWindow: 10, MomentumWindow: 10, RSIWindow: 14}
	engineer := NewFeatureEngineer(cfg)

	features, err := engineer.Transform(series)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}

	if features.ValidStart != 14 {
		t.Fatalf("expected valid start 14, got %d", features.ValidStart)
	}
	wantRows := 80 - cfg.Horizon - features.ValidStart
	if len(features.Rows) != wantRows {
		t.Fatalf("expected %d rows, got %d", wantRows, len(features.Rows))
	}
	if len(features.Targets) != len(features.Rows) {
		t.Fatalf("targets misaligned: %d vs %d rows", len(features.Targets), len(features.Rows))
	}

	prices := series.Signals[SignalPrice]
	for k, target := range features.Targets {
		i := features.ValidStart + k
		want := math.Log(prices[i+cfg.Horizon] / prices[i])
		if !almostEqual(target, want, 1e-12) {
			t.Fatalf("target %d: got %f want %f", k, target, want)
		}
	}
}

func TestTransformCausality(t *testing.T) {
	full := testSeries(80)
	cfg := FeatureConfig{Horizon: 5, VolatilityWindow: 10, SMAWindow: 10, MomentumWindow: 10, RSIWindow: 14}
	engineer := NewFeatureEngineer(cfg)

	fullSet, err := engineer.Transform(full)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}

	// Truncating the raw series must not change any feature row that
	// both versions produce: features may only look backwards.
	truncated := testSeries(60)
	truncSet, err := engineer.Transform(truncated)
	if err != nil {
		t.Fatalf("transform on truncated series failed: %v", err)
	}

	for k := range truncSet.Rows {
		for j := range truncSet.Rows[k] {
			if truncSet.Rows[k][j] != fullSet.Rows[k][j] {
				t.Fatalf("feature row %d col %d depends on future data: %f vs %f", k, j, truncSet.Rows[k][j], fullSet.Rows[k][j])
			}
		}
	}
}

func TestSeriesValidateLengthMismatch(t *testing.T) {
	series := RawSeries{Signals: map[string][]float64{
		"a": {1, 2, 3},
		"b": {1, 2},
	}}
	if err := series.Validate(); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSeriesValidateRejectsNaN(t *testing.T) {
	series := RawSeries{Signals: map[string][]float64{
		"a": {1, math.NaN(), 3},
	}}
	if err := series.Validate(); err == nil {
		t.Fatal("NaN entries must be rejected, not imputed")
	}
}
