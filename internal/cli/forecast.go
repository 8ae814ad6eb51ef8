package cli

import (
	"github.com/spf13/cobra"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/app"
)

var forecastDays int

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Produce a recursive multi-day return forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ForecastOptions{
			Days: forecastDays,
		}
		return getApp().Forecast(cmd.Context(), opts)
	},
}

func init() {
	forecastCmd.Flags().IntVar(&forecastDays, "days", 0, "Forecast horizon in trading days (defaults to config)")
}
