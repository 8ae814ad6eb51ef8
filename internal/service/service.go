package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/alerting"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/config"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/evaluate"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/forecast"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/loader"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/scheduler"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/storage"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/training"
)

// Run kinds persisted with each training session.
const (
	RunKindFeatures = "features"
	RunKindReturns  = "returns"
)

// TrainOutcome summarises one multi-feature training session.
type TrainOutcome struct {
	RunID      int64
	History    *training.History
	TestRMSE   float64
	TrainCount int
	ValCount   int
	TestCount  int
	ValidStart int
}

// ForecastOutcome summarises one recursive forecast session.
type ForecastOutcome struct {
	RunID       int64
	History     *training.History
	Predictions []forecast.Prediction
}

// Service orchestrates loading, training, forecasting, persistence, and
// alerting. Stores and notifier may be nil; the corresponding step is
// skipped with a log line rather than failing the run.
type Service struct {
	cfg      *config.Config
	sched    *scheduler.Scheduler
	load     *loader.Loader
	runs     storage.TrainingRunStore
	metrics  storage.EpochMetricStore
	preds    storage.PredictionStore
	notifier alerting.Notifier
	newModel func() training.Trainable
	logger   zerolog.Logger
}

// New constructs the forecasting service.
func New(cfg *config.Config, sched *scheduler.Scheduler, load *loader.Loader, runs storage.TrainingRunStore, metrics storage.EpochMetricStore, preds storage.PredictionStore, notifier alerting.Notifier, newModel func() training.Trainable, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		sched:    sched,
		load:     load,
		runs:     runs,
		metrics:  metrics,
		preds:    preds,
		notifier: notifier,
		newModel: newModel,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the periodic retrain-and-forecast loop.
func (s *Service) Run(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.sched.Run(ctx, s.ProcessBucket)
}

// ProcessBucket executes one full cycle: retrain on the latest data,
// evaluate on the held-out tail, forecast ahead, and alert when the
// predicted move clears the configured threshold.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	trainOut, err := s.TrainAndEvaluate(ctx, nil)
	if err != nil {
		return fmt.Errorf("train cycle: %w", err)
	}
	s.logger.Info().
		Time("bucket", bucket).
		Int64("run_id", trainOut.RunID).
		Float64("test_rmse", trainOut.TestRMSE).
		Msg("retrain complete")

	forecastOut, err := s.ForecastAhead(ctx)
	if err != nil {
		return fmt.Errorf("forecast cycle: %w", err)
	}
	s.logger.Info().
		Time("bucket", bucket).
		Int64("run_id", forecastOut.RunID).
		Int("days", len(forecastOut.Predictions)).
		Msg("forecast complete")

	s.maybeAlert(ctx, forecastOut)
	return nil
}

// TrainAndEvaluate runs the multi-feature pipeline: engineer features,
// standardize, sequence, split chronologically, train, and score the
// test partition with batch predictions.
func (s *Service) TrainAndEvaluate(ctx context.Context, progress training.ProgressFunc) (*TrainOutcome, error) {
	series, err := s.load.Load()
	if err != nil {
		return nil, err
	}

	engineer := pipeline.NewFeatureEngineer(s.cfg.FeatureConfig())
	features, err := engineer.Transform(series)
	if err != nil {
		return nil, err
	}

	featureScaler := &pipeline.Standardizer{}
	targetScaler := &pipeline.Standardizer{}
	fitRows, fitTargets := s.fitSubset(features.Rows, features.Targets)
	if err := featureScaler.Fit(fitRows); err != nil {
		return nil, err
	}
	if err := targetScaler.FitSeries(fitTargets); err != nil {
		return nil, err
	}

	normRows, err := featureScaler.Transform(features.Rows)
	if err != nil {
		return nil, err
	}
	normTargets, err := targetScaler.TransformSeries(features.Targets)
	if err != nil {
		return nil, err
	}

	sequences, err := pipeline.BuildSequences(normRows, normTargets, s.cfg.Pipeline.Lookback)
	if err != nil {
		return nil, err
	}
	split, err := pipeline.SplitSequences(sequences, s.cfg.Pipeline.TrainRatio, s.cfg.Pipeline.ValRatio)
	if err != nil {
		return nil, err
	}

	model := s.newModel()
	orch := training.NewOrchestrator(model, s.logger)
	startedAt := time.Now().UTC()
	history, err := orch.Train(ctx,
		training.BatchFromSequences(split.Train),
		training.BatchFromSequences(split.Validation),
		s.cfg.Model.Epochs,
		progress,
	)
	if err != nil {
		s.persistRun(ctx, RunKindFeatures, startedAt, history, nil, "failed", err)
		return nil, err
	}

	forecaster := forecast.New(model, targetScaler, history, s.logger)
	testRMSE := math.NaN()
	if len(split.Test) > 0 {
		predictions, err := forecaster.Batch(split.Test)
		if err != nil {
			return nil, err
		}
		_, normActual := pipeline.Tensors(split.Test)
		actual, err := targetScaler.InverseSeries(normActual)
		if err != nil {
			return nil, err
		}
		predicted := make([]float64, len(predictions))
		for i, p := range predictions {
			predicted[i] = p.Value
		}
		testRMSE, err = evaluate.RMSE(actual, predicted)
		if err != nil {
			return nil, err
		}
	}

	var rmsePtr *float64
	if !math.IsNaN(testRMSE) {
		rmsePtr = &testRMSE
	}
	runID := s.persistRun(ctx, RunKindFeatures, startedAt, history, rmsePtr, "complete", nil)

	return &TrainOutcome{
		RunID:      runID,
		History:    history,
		TestRMSE:   testRMSE,
		TrainCount: len(split.Train),
		ValCount:   len(split.Validation),
		TestCount:  len(split.Test),
		ValidStart: features.ValidStart,
	}, nil
}

// ForecastAhead runs the single-column return pipeline and produces a
// recursive multi-day forecast from the most recent lookback window.
func (s *Service) ForecastAhead(ctx context.Context) (*ForecastOutcome, error) {
	series, err := s.load.Load()
	if err != nil {
		return nil, err
	}
	prices, err := series.Signal(pipeline.SignalPrice)
	if err != nil {
		return nil, err
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices, have %d", pipeline.ErrInsufficientData, len(prices))
	}

	// Drop the synthetic zero return at index 0.
	returns := pipeline.LogReturns(prices)[1:]

	scaler := &pipeline.Standardizer{}
	fitValues := returns
	if s.cfg.Pipeline.FitOnTrainOnly {
		cut := int(float64(len(returns)) * s.cfg.Pipeline.TrainRatio)
		if cut > 0 {
			fitValues = returns[:cut]
		}
	}
	if err := scaler.FitSeries(fitValues); err != nil {
		return nil, err
	}
	normalized, err := scaler.TransformSeries(returns)
	if err != nil {
		return nil, err
	}

	// Single-column mode: the series is both input and next-step target.
	sequences, err := pipeline.BuildSeriesSequences(normalized, normalized, s.cfg.Pipeline.Lookback)
	if err != nil {
		return nil, err
	}
	split, err := pipeline.SplitSequences(sequences, s.cfg.Pipeline.TrainRatio, s.cfg.Pipeline.ValRatio)
	if err != nil {
		return nil, err
	}

	model := s.newModel()
	orch := training.NewOrchestrator(model, s.logger)
	startedAt := time.Now().UTC()
	history, err := orch.Train(ctx,
		training.BatchFromSequences(split.Train),
		training.BatchFromSequences(split.Validation),
		s.cfg.Model.Epochs,
		nil,
	)
	if err != nil {
		s.persistRun(ctx, RunKindReturns, startedAt, history, nil, "failed", err)
		return nil, err
	}

	window := make([][]float64, s.cfg.Pipeline.Lookback)
	for i, v := range normalized[len(normalized)-s.cfg.Pipeline.Lookback:] {
		window[i] = []float64{v}
	}

	forecaster := forecast.New(model, scaler, history, s.logger)
	predictions, err := forecaster.Recursive(window, s.cfg.Pipeline.ForecastDays)
	if err != nil {
		return nil, err
	}

	runID := s.persistRun(ctx, RunKindReturns, startedAt, history, nil, "complete", nil)
	s.persistPredictions(ctx, runID, predictions)

	return &ForecastOutcome{
		RunID:       runID,
		History:     history,
		Predictions: predictions,
	}, nil
}

// fitSubset returns the rows eligible for standardization fitting. With
// fit_on_train_only the cut excludes validation/test distribution from
// the fitted parameters; otherwise the whole matrix is used, which
// reproduces the legacy leakage-prone behaviour.
func (s *Service) fitSubset(rows [][]float64, targets []float64) ([][]float64, []float64) {
	if !s.cfg.Pipeline.FitOnTrainOnly {
		return rows, targets
	}
	cut := int(float64(len(rows)) * s.cfg.Pipeline.TrainRatio)
	if cut <= 0 || cut > len(rows) {
		return rows, targets
	}
	return rows[:cut], targets[:cut]
}

func (s *Service) persistRun(ctx context.Context, kind string, startedAt time.Time, history *training.History, testRMSE *float64, status string, runErr error) int64 {
	if s.runs == nil {
		return 0
	}

	run := storage.TrainingRun{
		Kind:       kind,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Status:     status,
	}
	if history != nil {
		run.Epochs = history.Len()
		if last, ok := history.Last(); ok {
			run.FinalTrainLoss = decimal.NewFromFloat(last.TrainLoss)
			run.FinalValLoss = decimal.NewFromFloat(last.ValLoss)
		}
	}
	if testRMSE != nil {
		rmse := decimal.NewFromFloat(*testRMSE)
		run.TestRMSE = &rmse
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	runID, err := s.runs.InsertTrainingRun(ctx, run)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("failed to persist training run")
		return 0
	}

	if s.metrics != nil && history != nil {
		records := history.Records()
		metrics := make([]storage.EpochMetric, len(records))
		for i, rec := range records {
			metrics[i] = storage.EpochMetric{
				RunID:     runID,
				Epoch:     rec.Epoch,
				TrainLoss: decimal.NewFromFloat(rec.TrainLoss),
				ValLoss:   decimal.NewFromFloat(rec.ValLoss),
			}
		}
		if err := s.metrics.InsertEpochMetrics(ctx, metrics); err != nil {
			s.logger.Error().Err(err).Int64("run_id", runID).Msg("failed to persist epoch metrics")
		}
	}
	return runID
}

func (s *Service) persistPredictions(ctx context.Context, runID int64, predictions []forecast.Prediction) {
	if s.preds == nil || runID == 0 {
		return
	}
	records := make([]storage.PredictionRecord, len(predictions))
	for i, p := range predictions {
		records[i] = storage.PredictionRecord{
			RunID:           runID,
			Step:            p.Step,
			PredictedReturn: decimal.NewFromFloat(p.Value),
			Confidence:      decimal.NewFromFloat(p.Confidence),
		}
	}
	if _, err := s.preds.InsertPredictions(ctx, records); err != nil {
		s.logger.Error().Err(err).Int64("run_id", runID).Msg("failed to persist predictions")
	}
}

func (s *Service) maybeAlert(ctx context.Context, out *ForecastOutcome) {
	if !s.cfg.Alerting.Enabled || s.notifier == nil || len(out.Predictions) == 0 {
		return
	}

	first := out.Predictions[0]
	pct := first.Value * 100
	if math.Abs(pct) < s.cfg.Alerting.ThresholdPct || first.Confidence < s.cfg.Alerting.MinConfidence {
		return
	}

	note := alerting.Notification{
		GeneratedAt:  time.Now().UTC(),
		ForecastDays: len(out.Predictions),
		FirstStepPct: decimal.NewFromFloat(pct),
		Confidence:   decimal.NewFromFloat(first.Confidence),
		ThresholdPct: decimal.NewFromFloat(s.cfg.Alerting.ThresholdPct),
		Direction:    classifyReturn(first.Value),
		Channels:     s.cfg.Alerting.Channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch forecast alert")
	}
}

func classifyReturn(v float64) string {
	switch {
	case v > 0:
		return "up"
	case v < 0:
		return "down"
	default:
		return "flat"
	}
}
