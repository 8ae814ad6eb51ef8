package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Forecast trains the return-series model and prints a recursive
// multi-day forecast with per-step confidence.
func (a *App) Forecast(ctx context.Context, opts ForecastOptions) error {
	cfg := *a.Config
	if opts.Days > 0 {
		cfg.Pipeline.ForecastDays = opts.Days
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(&cfg, nil, store, nil)

	outcome, err := svc.ForecastAhead(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Day\tPredicted Return %\tConfidence")
	for _, p := range outcome.Predictions {
		fmt.Fprintf(writer, "%d\t%+.4f\t%.2f\n", p.Step, p.Value*100, p.Confidence)
	}
	writer.Flush()

	if outcome.RunID != 0 {
		fmt.Fprintf(os.Stdout, "run id: %d\n", outcome.RunID)
	}
	return nil
}
