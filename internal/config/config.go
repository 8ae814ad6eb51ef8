package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/logging"
	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Data      DataConfig      `mapstructure:"data"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Model     ModelConfig     `mapstructure:"model"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DataConfig locates the daily-series input file and names the columns
// carrying each required signal.
type DataConfig struct {
	Path             string `mapstructure:"path"`
	DateColumn       string `mapstructure:"date_column"`
	DateFormat       string `mapstructure:"date_format"`
	PriceColumn      string `mapstructure:"price_column"`
	VolatilityColumn string `mapstructure:"volatility_column"`
	YieldColumn      string `mapstructure:"yield_column"`
	CurrencyColumn   string `mapstructure:"currency_column"`
	VolumeColumn     string `mapstructure:"volume_column"`
}

// PipelineConfig holds the feature and sequencing parameters.
type PipelineConfig struct {
	Lookback         int     `mapstructure:"lookback"`
	TrainRatio       float64 `mapstructure:"train_ratio"`
	ValRatio         float64 `mapstructure:"val_ratio"`
	Horizon          int     `mapstructure:"horizon"`
	ForecastDays     int     `mapstructure:"forecast_days"`
	VolatilityWindow int     `mapstructure:"volatility_window"`
	SMAWindow        int     `mapstructure:"sma_window"`
	MomentumWindow   int     `mapstructure:"momentum_window"`
	RSIWindow        int     `mapstructure:"rsi_window"`
	// FitOnTrainOnly fits standardization parameters on the rows before
	// the validation cut instead of the whole matrix. Whole-matrix
	// fitting leaks validation/test distribution into training and is
	// kept only to reproduce legacy behaviour.
	FitOnTrainOnly bool `mapstructure:"fit_on_train_only"`
}

// ModelConfig tunes the bundled reference capability.
type ModelConfig struct {
	Epochs       int     `mapstructure:"epochs"`
	LearningRate float64 `mapstructure:"learning_rate"`
}

// SchedulerConfig governs the periodic retrain loop.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines forecast alert thresholds and routing.
type AlertingConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	ThresholdPct  float64        `mapstructure:"threshold_pct"`
	MinConfidence float64        `mapstructure:"min_confidence"`
	Channels      []string       `mapstructure:"channels"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORECASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "forecaster")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("data.date_column", "date")
	v.SetDefault("data.date_format", "2006-01-02")
	v.SetDefault("data.price_column", "sp500")
	v.SetDefault("data.volatility_column", "vix")
	v.SetDefault("data.yield_column", "treasury_yield")
	v.SetDefault("data.currency_column", "dxy")
	v.SetDefault("data.volume_column", "volume")

	v.SetDefault("pipeline.lookback", 20)
	v.SetDefault("pipeline.train_ratio", 0.7)
	v.SetDefault("pipeline.val_ratio", 0.15)
	v.SetDefault("pipeline.horizon", 5)
	v.SetDefault("pipeline.forecast_days", 5)
	v.SetDefault("pipeline.volatility_window", 10)
	v.SetDefault("pipeline.sma_window", 10)
	v.SetDefault("pipeline.momentum_window", 10)
	v.SetDefault("pipeline.rsi_window", 14)
	v.SetDefault("pipeline.fit_on_train_only", true)

	v.SetDefault("model.epochs", 50)
	v.SetDefault("model.learning_rate", 0.01)

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 1.0)
	v.SetDefault("alerting.min_confidence", 0.5)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Pipeline.Lookback <= 0 {
		return fmt.Errorf("pipeline.lookback must be greater than zero")
	}
	if c.Pipeline.TrainRatio < 0 || c.Pipeline.ValRatio < 0 {
		return fmt.Errorf("pipeline ratios cannot be negative")
	}
	if c.Pipeline.TrainRatio+c.Pipeline.ValRatio > 1 {
		return fmt.Errorf("pipeline.train_ratio + pipeline.val_ratio must not exceed 1")
	}
	if c.Pipeline.Horizon <= 0 {
		return fmt.Errorf("pipeline.horizon must be greater than zero")
	}
	if c.Pipeline.ForecastDays <= 0 {
		return fmt.Errorf("pipeline.forecast_days must be greater than zero")
	}
	for name, window := range map[string]int{
		"pipeline.volatility_window": c.Pipeline.VolatilityWindow,
		"pipeline.sma_window":        c.Pipeline.SMAWindow,
		"pipeline.momentum_window":   c.Pipeline.MomentumWindow,
		"pipeline.rsi_window":        c.Pipeline.RSIWindow,
	} {
		if window <= 0 {
			return fmt.Errorf("%s must be greater than zero", name)
		}
	}
	if c.Model.Epochs <= 0 {
		return fmt.Errorf("model.epochs must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// FeatureConfig converts pipeline settings to the engineer's window config.
func (c *Config) FeatureConfig() pipeline.FeatureConfig {
	return pipeline.FeatureConfig{
		Horizon:          c.Pipeline.Horizon,
		VolatilityWindow: c.Pipeline.VolatilityWindow,
		SMAWindow:        c.Pipeline.SMAWindow,
		MomentumWindow:   c.Pipeline.MomentumWindow,
		RSIWindow:        c.Pipeline.RSIWindow,
	}
}

// SignalColumns maps canonical signal names to file columns for the loader.
func (c *Config) SignalColumns() map[string]string {
	return map[string]string{
		pipeline.SignalPrice:      c.Data.PriceColumn,
		pipeline.SignalVolatility: c.Data.VolatilityColumn,
		pipeline.SignalYield:      c.Data.YieldColumn,
		pipeline.SignalCurrency:   c.Data.CurrencyColumn,
		pipeline.SignalVolume:     c.Data.VolumeColumn,
	}
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
