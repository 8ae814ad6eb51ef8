package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/alerting"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/config"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/loader"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/scheduler"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/service"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/storage"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/training"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newLoader() *loader.Loader {
	return loader.New(loader.Options{
		Path:       a.Config.Data.Path,
		DateColumn: a.Config.Data.DateColumn,
		DateFormat: a.Config.Data.DateFormat,
		Columns:    a.Config.SignalColumns(),
	}, a.Logger)
}

func (a *App) newModelFactory() func() training.Trainable {
	learningRate := a.Config.Model.LearningRate
	return func() training.Trainable {
		return training.NewLinearModel(learningRate)
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(cfg *config.Config, sched *scheduler.Scheduler, store *storage.Store, notifier alerting.Notifier) *service.Service {
	var runs storage.TrainingRunStore
	var metrics storage.EpochMetricStore
	var preds storage.PredictionStore
	if store != nil {
		runs = store
		metrics = store
		preds = store
	}
	return service.New(cfg, sched, a.newLoader(), runs, metrics, preds, notifier, a.newModelFactory(), a.Logger)
}

// Run executes the long-running retrain-and-forecast service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(a.Config, sched, store, a.newNotifier())

	a.Logger.Info().Msg("starting forecasting service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("forecasting service stopped")
	return nil
}

// TrainOptions configure a one-shot training session.
type TrainOptions struct {
	Epochs int
}

// ForecastOptions configure a one-shot recursive forecast.
type ForecastOptions struct {
	Days int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a run's artefacts.
type ExportOptions struct {
	RunID           int64
	PNGPath         string
	ForecastPNGPath string
	CSVPath         string
	MaxPoints       int
}
