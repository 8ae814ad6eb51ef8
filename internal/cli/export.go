package cli

import (
	"github.com/spf13/cobra"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/app"
)

var (
	exportRunID           int64
	exportPNGPath         string
	exportForecastPNGPath string
	exportCSVPath         string
	exportMaxPoints       int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's loss curves as PNG and/or predictions as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			RunID:           exportRunID,
			PNGPath:         exportPNGPath,
			ForecastPNGPath: exportForecastPNGPath,
			CSVPath:         exportCSVPath,
			MaxPoints:       exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().Int64Var(&exportRunID, "run", 0, "Training run id (defaults to most recent)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write loss-curve PNG")
	exportCmd.Flags().StringVar(&exportForecastPNGPath, "forecast-png", "", "Path to write forecast-path PNG")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write predictions CSV")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
