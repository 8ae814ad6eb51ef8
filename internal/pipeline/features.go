package pipeline

import (
	"fmt"
	"math"
)

// FeatureConfig sets the rolling-window sizes and target horizon used to
// derive indicators from the raw series.
type FeatureConfig struct {
	Horizon          int
	VolatilityWindow int
	SMAWindow        int
	MomentumWindow   int
	RSIWindow        int
}

// defaults mirror a daily-bar setup: one-week forward target, two-week
// rolling windows, standard 14-day RSI.
func (c FeatureConfig) withDefaults() FeatureConfig {
	if c.Horizon <= 0 {
		c.Horizon = 5
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = 10
	}
	if c.SMAWindow <= 0 {
		c.SMAWindow = 10
	}
	if c.MomentumWindow <= 0 {
		c.MomentumWindow = 10
	}
	if c.RSIWindow <= 0 {
		c.RSIWindow = 14
	}
	return c
}

// FeatureSet is the engineered output: one fixed-order feature row per
// retained day plus the aligned forward-return target. ValidStart is the
// index into the raw series where row 0 originates, so callers can align
// auxiliary arrays such as dates.
type FeatureSet struct {
	Columns    []string
	Rows       [][]float64
	Targets    []float64
	ValidStart int
}

// FeatureEngineer turns aligned raw signals into a causal feature matrix.
// Every derived value at row i uses raw data at indices <= i; the forward
// target is the only field referencing the future and is never part of
// the feature vector.
type FeatureEngineer struct {
	cfg FeatureConfig
}

// NewFeatureEngineer applies defaults to any unset window.
func NewFeatureEngineer(cfg FeatureConfig) *FeatureEngineer {
	return &FeatureEngineer{cfg: cfg.withDefaults()}
}

// Columns returns the fixed feature order produced by Transform.
func (e *FeatureEngineer) Columns() []string {
	return []string{
		"price_return",
		"rolling_volatility",
		"sma",
		"momentum",
		"rsi",
		"volatility_return",
		"yield_change",
		"currency_return",
		"volume_return",
	}
}

// Transform derives the feature matrix and forward-return target vector.
// Rows before the first index where every indicator and the target are
// simultaneously defined are discarded.
func (e *FeatureEngineer) Transform(series RawSeries) (*FeatureSet, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if err := series.RequireSignals(RequiredSignals()); err != nil {
		return nil, err
	}

	price := series.Signals[SignalPrice]
	n := len(price)

	cfg := e.cfg
	warmup := cfg.VolatilityWindow
	if cfg.SMAWindow-1 > warmup {
		warmup = cfg.SMAWindow - 1
	}
	if cfg.MomentumWindow > warmup {
		warmup = cfg.MomentumWindow
	}
	if cfg.RSIWindow > warmup {
		warmup = cfg.RSIWindow
	}

	// The last Horizon rows have no realized forward return.
	usable := n - cfg.Horizon - warmup
	if usable <= 0 {
		return nil, fmt.Errorf("%w: need more than %d observations, have %d", ErrInsufficientData, warmup+cfg.Horizon, n)
	}

	priceReturns := LogReturns(price)
	volReturns := LogReturns(series.Signals[SignalVolatility])
	curReturns := LogReturns(series.Signals[SignalCurrency])
	volumeReturns := LogReturns(series.Signals[SignalVolume])
	yields := series.Signals[SignalYield]

	rows := make([][]float64, 0, usable)
	targets := make([]float64, 0, usable)
	for i := warmup; i < n-cfg.Horizon; i++ {
		yieldChange := 0.0
		if i > 0 {
			yieldChange = yields[i] - yields[i-1]
		}
		row := []float64{
			priceReturns[i],
			RollingVolatility(priceReturns, i, cfg.VolatilityWindow),
			SMA(price, i, cfg.SMAWindow),
			Momentum(price, i, cfg.MomentumWindow),
			RSI(price, i, cfg.RSIWindow),
			volReturns[i],
			yieldChange,
			curReturns[i],
			volumeReturns[i],
		}
		rows = append(rows, row)
		targets = append(targets, ForwardReturn(price, i, cfg.Horizon))
	}

	return &FeatureSet{
		Columns:    e.Columns(),
		Rows:       rows,
		Targets:    targets,
		ValidStart: warmup,
	}, nil
}

// LogReturns computes r[i] = ln(S[i]/S[i-1]) with r[0] = 0. Non-positive
// levels yield 0 rather than a non-finite value.
func LogReturns(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// ForwardReturn is the realized return ln(S[i+h]/S[i]) used as the
// supervised target. Caller must guarantee i+h is in range.
func ForwardReturn(values []float64, i, h int) float64 {
	if values[i] <= 0 || values[i+h] <= 0 {
		return 0
	}
	return math.Log(values[i+h] / values[i])
}

// RollingVolatility is the population standard deviation of the last
// window log-returns ending at i. Undefined (0) for i < window.
func RollingVolatility(returns []float64, i, window int) float64 {
	if i < window {
		return 0
	}
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		sum += returns[j]
	}
	mean := sum / float64(window)
	acc := 0.0
	for j := i - window + 1; j <= i; j++ {
		d := returns[j] - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(window))
}

// SMA is the simple moving average of the raw level over window entries
// ending at i. Undefined (0) for i < window-1.
func SMA(values []float64, i, window int) float64 {
	if i < window-1 {
		return 0
	}
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(window)
}

// Momentum is S[i]/S[i-window] - 1. Undefined (0) for i < window.
func Momentum(values []float64, i, window int) float64 {
	if i < window {
		return 0
	}
	if values[i-window] == 0 {
		return 0
	}
	return values[i]/values[i-window] - 1
}

// RSI is the Wilder-style relative strength index over the trailing
// window changes, using simple averages of gains and losses. Neutral 50
// before the window fills; 100 when the average loss is exactly zero.
func RSI(values []float64, i, window int) float64 {
	if i < window {
		return 50
	}
	gains := 0.0
	losses := 0.0
	for j := i - window + 1; j <= i; j++ {
		change := values[j] - values[j-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(window)
	avgLoss := losses / float64(window)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
