package cli

import (
	"github.com/spf13/cobra"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/app"
)

var trainEpochs int

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model on the configured series and evaluate held-out RMSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.TrainOptions{
			Epochs: trainEpochs,
		}
		return getApp().Train(cmd.Context(), opts)
	},
}

func init() {
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 0, "Number of epochs (defaults to config)")
}
