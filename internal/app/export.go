package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/storage"
)

// Export renders a run's loss history as a PNG chart and/or its
// predictions as CSV. With no --run the most recent run is used.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" && opts.ForecastPNGPath == "" {
		return errors.New("at least one of --csv, --png, or --forecast-png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	runID := opts.RunID
	if runID == 0 {
		runs, err := store.ListRecentRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			a.Logger.Info().Msg("no training runs to export")
			return nil
		}
		runID = runs[0].ID
	}

	if opts.PNGPath != "" {
		metrics, err := store.ListEpochMetrics(ctx, runID)
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			return fmt.Errorf("run %d has no epoch metrics", runID)
		}
		downsampled := downsampleMetrics(metrics, opts.MaxPoints)
		a.Logger.Info().Int("total", len(metrics)).Int("exported", len(downsampled)).Msg("exporting loss curves")
		if err := writeLossPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	if opts.CSVPath != "" || opts.ForecastPNGPath != "" {
		predictions, err := store.ListPredictions(ctx, runID)
		if err != nil {
			return err
		}
		if len(predictions) == 0 {
			a.Logger.Info().Int64("run_id", runID).Msg("run has no predictions; skipping prediction export")
			return nil
		}
		if opts.CSVPath != "" {
			if err := writePredictionsCSV(opts.CSVPath, predictions); err != nil {
				return err
			}
		}
		if opts.ForecastPNGPath != "" {
			if err := writeForecastPNG(opts.ForecastPNGPath, predictions); err != nil {
				return err
			}
		}
	}

	return nil
}

func downsampleMetrics(metrics []storage.EpochMetric, max int) []storage.EpochMetric {
	if max <= 0 || len(metrics) <= max {
		return metrics
	}

	result := make([]storage.EpochMetric, 0, max)
	step := float64(len(metrics)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(metrics) {
			idx = len(metrics) - 1
		}
		result = append(result, metrics[idx])
	}
	return result
}

func writeLossPNG(path string, metrics []storage.EpochMetric) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	epochs := make([]float64, len(metrics))
	trainLoss := make([]float64, len(metrics))
	valLoss := make([]float64, len(metrics))
	for i, m := range metrics {
		epochs[i] = float64(m.Epoch)
		trainLoss[i] = m.TrainLoss.InexactFloat64()
		valLoss[i] = m.ValLoss.InexactFloat64()
	}

	lossFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.5f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Epoch",
		},
		YAxis: chart.YAxis{
			Name:           "Loss (MSE, normalized)",
			ValueFormatter: lossFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Train",
				XValues: epochs,
				YValues: trainLoss,
			},
			chart.ContinuousSeries{
				Name:    "Validation",
				XValues: epochs,
				YValues: valLoss,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func writeForecastPNG(path string, predictions []storage.PredictionRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	steps := make([]float64, len(predictions))
	returns := make([]float64, len(predictions))
	for i, p := range predictions {
		steps[i] = float64(p.Step)
		returns[i] = p.PredictedReturn.InexactFloat64() * 100
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Day Ahead",
		},
		YAxis: chart.YAxis{
			Name: "Predicted Return %",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.3f")
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Forecast",
				XValues: steps,
				YValues: returns,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func writePredictionsCSV(path string, predictions []storage.PredictionRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"run_id", "step", "predicted_return", "confidence", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range predictions {
		record := []string{
			fmt.Sprintf("%d", p.RunID),
			fmt.Sprintf("%d", p.Step),
			p.PredictedReturn.String(),
			p.Confidence.String(),
			p.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
