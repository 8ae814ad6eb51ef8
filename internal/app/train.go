package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/training"
)

// Train runs one training session over the configured series file and
// prints the loss history plus held-out RMSE.
func (a *App) Train(ctx context.Context, opts TrainOptions) error {
	cfg := *a.Config
	if opts.Epochs > 0 {
		cfg.Model.Epochs = opts.Epochs
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(&cfg, nil, store, nil)

	progress := func(rec training.EpochRecord) {
		a.Logger.Info().
			Int("epoch", rec.Epoch).
			Float64("train_loss", rec.TrainLoss).
			Float64("val_loss", rec.ValLoss).
			Msg("epoch")
	}

	outcome, err := svc.TrainAndEvaluate(ctx, progress)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Sequences\tTrain\tVal\tTest\tEpochs\tTest RMSE")
	rmse := "n/a"
	if !math.IsNaN(outcome.TestRMSE) {
		rmse = fmt.Sprintf("%.6f", outcome.TestRMSE)
	}
	fmt.Fprintf(writer, "%d\t%d\t%d\t%d\t%d\t%s\n",
		outcome.TrainCount+outcome.ValCount+outcome.TestCount,
		outcome.TrainCount,
		outcome.ValCount,
		outcome.TestCount,
		outcome.History.Len(),
		rmse,
	)
	writer.Flush()

	if outcome.RunID != 0 {
		fmt.Fprintf(os.Stdout, "run id: %d\n", outcome.RunID)
	}
	return nil
}
