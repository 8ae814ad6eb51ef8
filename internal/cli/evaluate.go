package cli

import (
	"github.com/spf13/cobra"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/app"
)

var evaluateEpochs int

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Train without persistence and report held-out RMSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.EvaluateOptions{
			Epochs: evaluateEpochs,
		}
		return getApp().Evaluate(cmd.Context(), opts)
	},
}

func init() {
	evaluateCmd.Flags().IntVar(&evaluateEpochs, "epochs", 0, "Number of epochs (defaults to config)")
}
