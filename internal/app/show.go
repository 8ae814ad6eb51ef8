package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent training runs and persisted predictions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	runs, err := store.ListRecentRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no training runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run\tKind\tStarted (UTC)\tEpochs\tTrain Loss\tVal Loss\tTest RMSE\tStatus\tError")
	for _, run := range runs {
		rmse := ""
		if run.TestRMSE != nil {
			rmse = formatDecimal(*run.TestRMSE, 6)
		}
		errMsg := ""
		if run.Error != nil {
			errMsg = sanitizeInline(*run.Error)
		}
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Epochs,
			formatDecimal(run.FinalTrainLoss, 6),
			formatDecimal(run.FinalValLoss, 6),
			rmse,
			run.Status,
			errMsg,
		)
	}
	writer.Flush()

	predictions, err := store.ListRecentPredictions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(predictions) == 0 {
		return nil
	}

	fmt.Fprintln(os.Stdout)
	writer = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run\tDay\tPredicted Return\tConfidence\tCreated (UTC)")
	for _, p := range predictions {
		fmt.Fprintf(
			writer,
			"%d\t%d\t%s\t%s\t%s\n",
			p.RunID,
			p.Step,
			formatDecimal(p.PredictedReturn, 6),
			formatDecimal(p.Confidence, 2),
			p.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
