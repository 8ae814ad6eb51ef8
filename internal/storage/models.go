package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrainingRun records one completed (or aborted) training session.
type TrainingRun struct {
	ID             int64
	Kind           string // "features" or "returns"
	StartedAt      time.Time
	FinishedAt     time.Time
	Epochs         int
	FinalTrainLoss decimal.Decimal
	FinalValLoss   decimal.Decimal
	TestRMSE       *decimal.Decimal
	Status         string
	Error          *string
}

// EpochMetric is one row of a run's loss history.
type EpochMetric struct {
	RunID     int64
	Epoch     int
	TrainLoss decimal.Decimal
	ValLoss   decimal.Decimal
}

// PredictionRecord persists one forecast step of a run.
type PredictionRecord struct {
	ID              int64
	RunID           int64
	Step            int
	PredictedReturn decimal.Decimal
	Confidence      decimal.Decimal
	CreatedAt       time.Time
}
