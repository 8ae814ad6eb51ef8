package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertTrainingRunSQL = `INSERT INTO training_runs (
        kind,
        started_at,
        finished_at,
        epochs,
        final_train_loss,
        final_val_loss,
        test_rmse,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id;`

	listRecentRunsSQL = `SELECT
        id,
        kind,
        started_at,
        finished_at,
        epochs,
        final_train_loss,
        final_val_loss,
        test_rmse,
        status,
        error
    FROM training_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	getRunSQL = `SELECT
        id,
        kind,
        started_at,
        finished_at,
        epochs,
        final_train_loss,
        final_val_loss,
        test_rmse,
        status,
        error
    FROM training_runs
    WHERE id = $1;`

	insertEpochMetricSQL = `INSERT INTO epoch_metrics (
        run_id,
        epoch,
        train_loss,
        val_loss
    ) VALUES (
        $1,$2,$3,$4
    );`

	listEpochMetricsSQL = `SELECT
        run_id,
        epoch,
        train_loss,
        val_loss
    FROM epoch_metrics
    WHERE run_id = $1
    ORDER BY epoch;`

	insertPredictionSQL = `INSERT INTO predictions (
        run_id,
        step,
        predicted_return,
        confidence
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, created_at;`

	listPredictionsSQL = `SELECT
        id,
        run_id,
        step,
        predicted_return,
        confidence,
        created_at
    FROM predictions
    WHERE run_id = $1
    ORDER BY step;`

	listRecentPredictionsSQL = `SELECT
        id,
        run_id,
        step,
        predicted_return,
        confidence,
        created_at
    FROM predictions
    ORDER BY created_at DESC, step
    LIMIT $1;`
)

// TrainingRunStore defines operations for run persistence.
type TrainingRunStore interface {
	InsertTrainingRun(ctx context.Context, run TrainingRun) (int64, error)
	GetTrainingRun(ctx context.Context, id int64) (TrainingRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]TrainingRun, error)
}

// EpochMetricStore defines operations for loss-history persistence.
type EpochMetricStore interface {
	InsertEpochMetrics(ctx context.Context, metrics []EpochMetric) error
	ListEpochMetrics(ctx context.Context, runID int64) ([]EpochMetric, error)
}

// PredictionStore defines operations for forecast persistence.
type PredictionStore interface {
	InsertPredictions(ctx context.Context, records []PredictionRecord) ([]PredictionRecord, error)
	ListPredictions(ctx context.Context, runID int64) ([]PredictionRecord, error)
	ListRecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error)
}

// Store aggregates access to runs, metrics, and predictions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertTrainingRun persists a finished run and returns its id.
func (s *Store) InsertTrainingRun(ctx context.Context, run TrainingRun) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var rmse interface{}
	if run.TestRMSE != nil {
		rmse = run.TestRMSE.String()
	}
	var errMsg interface{}
	if run.Error != nil {
		errMsg = *run.Error
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertTrainingRunSQL,
		run.Kind,
		run.StartedAt,
		run.FinishedAt,
		run.Epochs,
		run.FinalTrainLoss.String(),
		run.FinalValLoss.String(),
		rmse,
		run.Status,
		errMsg,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert training run: %w", scanErr)
	}
	return id, nil
}

// GetTrainingRun fetches one run by id.
func (s *Store) GetTrainingRun(ctx context.Context, id int64) (TrainingRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return TrainingRun{}, err
	}

	rows, queryErr := pool.Query(ctx, getRunSQL, id)
	if queryErr != nil {
		return TrainingRun{}, fmt.Errorf("get training run: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return TrainingRun{}, rows.Err()
		}
		return TrainingRun{}, pgx.ErrNoRows
	}
	return scanTrainingRun(rows)
}

// ListRecentRuns lists the most recent runs ordered by start time.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0, limit)
	for rows.Next() {
		run, scanErr := scanTrainingRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// InsertEpochMetrics persists a run's loss history.
func (s *Store) InsertEpochMetrics(ctx context.Context, metrics []EpochMetric) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, m := range metrics {
		if _, execErr := pool.Exec(ctx, insertEpochMetricSQL,
			m.RunID,
			m.Epoch,
			m.TrainLoss.String(),
			m.ValLoss.String(),
		); execErr != nil {
			return fmt.Errorf("insert epoch metric %d: %w", m.Epoch, execErr)
		}
	}
	return nil
}

// ListEpochMetrics lists a run's loss history ordered by epoch.
func (s *Store) ListEpochMetrics(ctx context.Context, runID int64) ([]EpochMetric, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listEpochMetricsSQL, runID)
	if queryErr != nil {
		return nil, fmt.Errorf("list epoch metrics: %w", queryErr)
	}
	defer rows.Close()

	metrics := make([]EpochMetric, 0)
	for rows.Next() {
		var m EpochMetric
		var trainStr, valStr string
		if err := rows.Scan(&m.RunID, &m.Epoch, &trainStr, &valStr); err != nil {
			return nil, err
		}
		var convErr error
		m.TrainLoss, convErr = decimal.NewFromString(trainStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse train loss: %w", convErr)
		}
		m.ValLoss, convErr = decimal.NewFromString(valStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse val loss: %w", convErr)
		}
		metrics = append(metrics, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return metrics, nil
}

// InsertPredictions persists forecast steps and returns them with ids.
func (s *Store) InsertPredictions(ctx context.Context, records []PredictionRecord) ([]PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	out := make([]PredictionRecord, 0, len(records))
	for _, rec := range records {
		row := pool.QueryRow(ctx, insertPredictionSQL,
			rec.RunID,
			rec.Step,
			rec.PredictedReturn.String(),
			rec.Confidence.String(),
		)
		if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("insert prediction step %d: %w", rec.Step, scanErr)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListPredictions lists a run's forecast ordered by step.
func (s *Store) ListPredictions(ctx context.Context, runID int64) ([]PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPredictionsSQL, runID)
	if queryErr != nil {
		return nil, fmt.Errorf("list predictions: %w", queryErr)
	}
	defer rows.Close()

	return collectPredictions(rows)
}

// ListRecentPredictions lists the latest persisted forecast steps.
func (s *Store) ListRecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPredictionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent predictions: %w", queryErr)
	}
	defer rows.Close()

	return collectPredictions(rows)
}

func collectPredictions(rows pgx.Rows) ([]PredictionRecord, error) {
	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var rec PredictionRecord
		var returnStr, confidenceStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Step,
			&returnStr,
			&confidenceStr,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		var convErr error
		rec.PredictedReturn, convErr = decimal.NewFromString(returnStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse predicted return: %w", convErr)
		}
		rec.Confidence, convErr = decimal.NewFromString(confidenceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse confidence: %w", convErr)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanTrainingRun(rows pgx.Rows) (TrainingRun, error) {
	var (
		run        TrainingRun
		trainStr   string
		valStr     string
		rmseStr    sql.NullString
		errMsg     sql.NullString
		startedAt  time.Time
		finishedAt time.Time
	)

	if err := rows.Scan(
		&run.ID,
		&run.Kind,
		&startedAt,
		&finishedAt,
		&run.Epochs,
		&trainStr,
		&valStr,
		&rmseStr,
		&run.Status,
		&errMsg,
	); err != nil {
		return TrainingRun{}, err
	}

	run.StartedAt = startedAt
	run.FinishedAt = finishedAt

	var convErr error
	run.FinalTrainLoss, convErr = decimal.NewFromString(trainStr)
	if convErr != nil {
		return TrainingRun{}, fmt.Errorf("parse final train loss: %w", convErr)
	}
	run.FinalValLoss, convErr = decimal.NewFromString(valStr)
	if convErr != nil {
		return TrainingRun{}, fmt.Errorf("parse final val loss: %w", convErr)
	}
	if rmseStr.Valid {
		rmse, err := decimal.NewFromString(rmseStr.String)
		if err != nil {
			return TrainingRun{}, fmt.Errorf("parse test rmse: %w", err)
		}
		run.TestRMSE = &rmse
	}
	if errMsg.Valid {
		msg := errMsg.String
		run.Error = &msg
	}

	return run, nil
}
