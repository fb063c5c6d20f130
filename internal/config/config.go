package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"SizingSignal/internal/model"
	"SizingSignal/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider          string        `yaml:"provider" validate:"oneof=yahoo rest"`
		BaseURL           string        `yaml:"base_url" validate:"required_if=Provider rest,omitempty,url"`
		APIKey            string        `yaml:"api_key"`
		RequestsPerSecond int           `yaml:"requests_per_second" validate:"gte=0"`
		Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	} `yaml:"data_source"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"` // negative disables caching
	} `yaml:"cache"`
	Pipeline struct {
		MaxConcurrency int           `yaml:"max_concurrency" validate:"gte=1"`
		FetchTimeout   time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	} `yaml:"pipeline"`
	Weights   WeightsConfig `yaml:"weights"`
	Watchlist struct {
		Tickers   string `yaml:"tickers"`
		Positions string `yaml:"positions"`
		Horizon   string `yaml:"horizon" validate:"oneof=daily weekly monthly yearly"`
	} `yaml:"watchlist"`
	Schedule struct {
		RunCron string `yaml:"run_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id" validate:"required_with=BotToken,omitempty,numeric"`
		MaxRetries int    `yaml:"max_retries" validate:"gte=0"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// WeightsConfig names the eight feature weights. Keys left out keep their default.
type WeightsConfig struct {
	MA100Proximity      float64 `yaml:"ma100_proximity"`
	MA200Proximity      float64 `yaml:"ma200_proximity"`
	TrendProximity      float64 `yaml:"trend_proximity"`
	RiskAdjustedReturn  float64 `yaml:"risk_adjusted_return"`
	LogMarketCap        float64 `yaml:"log_market_cap"`
	InverseSpread       float64 `yaml:"inverse_spread"`
	WorstMinusLast      float64 `yaml:"worst_minus_last"`
	VolatilityMinusLast float64 `yaml:"volatility_minus_last"`
}

// envOverrides are read after the YAML file; unset variables leave the file value.
type envOverrides struct {
	Provider       string         `envconfig:"SIZER_PROVIDER"`
	BaseURL        string         `envconfig:"SIZER_BASE_URL"`
	APIKey         string         `envconfig:"SIZER_API_KEY"`
	Tickers        string         `envconfig:"SIZER_TICKERS"`
	Positions      string         `envconfig:"SIZER_POSITIONS"`
	Horizon        string         `envconfig:"SIZER_HORIZON"`
	RunCron        string         `envconfig:"SIZER_RUN_CRON"`
	LogLevel       string         `envconfig:"SIZER_LOG_LEVEL"`
	MaxConcurrency *int           `envconfig:"SIZER_MAX_CONCURRENCY"`
	FetchTimeout   *time.Duration `envconfig:"SIZER_FETCH_TIMEOUT"`
	CacheTTL       *time.Duration `envconfig:"SIZER_CACHE_TTL"`
	BotToken       string         `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID         string         `envconfig:"TELEGRAM_CHAT_ID"`
	SQLitePath     string         `envconfig:"SQLITE_PATH"`
	Proxy          string         `envconfig:"HTTPS_PROXY"`
}

var validate = validator.New()

// Load reads config from a YAML file, then .env and environment variable overrides,
// then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Weights: weightsConfigFrom(strategy.DefaultWeights)}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DataSource.Provider, env.Provider)
	set(&c.DataSource.BaseURL, env.BaseURL)
	set(&c.DataSource.APIKey, env.APIKey)
	set(&c.Watchlist.Tickers, env.Tickers)
	set(&c.Watchlist.Positions, env.Positions)
	set(&c.Watchlist.Horizon, env.Horizon)
	set(&c.Schedule.RunCron, env.RunCron)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Telegram.BotToken, env.BotToken)
	set(&c.Telegram.ChatID, env.ChatID)
	set(&c.Database.SQLitePath, env.SQLitePath)
	set(&c.Proxy, env.Proxy)

	if env.MaxConcurrency != nil {
		c.Pipeline.MaxConcurrency = *env.MaxConcurrency
	}
	if env.FetchTimeout != nil {
		c.Pipeline.FetchTimeout = *env.FetchTimeout
	}
	if env.CacheTTL != nil {
		c.Cache.TTL = *env.CacheTTL
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 30 * time.Second
	}
	if c.Pipeline.MaxConcurrency == 0 {
		c.Pipeline.MaxConcurrency = 4
	}
	if c.Pipeline.FetchTimeout == 0 {
		c.Pipeline.FetchTimeout = 30 * time.Second
	}
	if c.Watchlist.Horizon == "" {
		c.Watchlist.Horizon = string(model.HorizonDaily)
	}
	if c.Schedule.RunCron == "" {
		c.Schedule.RunCron = "0 30 22 * * 1-5"
	}
	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

// FeatureWeights returns the configured weights in feature order.
func (c *Config) FeatureWeights() model.Weights {
	w := c.Weights
	return model.Weights{
		w.MA100Proximity,
		w.MA200Proximity,
		w.TrendProximity,
		w.RiskAdjustedReturn,
		w.LogMarketCap,
		w.InverseSpread,
		w.WorstMinusLast,
		w.VolatilityMinusLast,
	}
}

func weightsConfigFrom(w model.Weights) WeightsConfig {
	return WeightsConfig{
		MA100Proximity:      w[model.FeatureMA100Proximity],
		MA200Proximity:      w[model.FeatureMA200Proximity],
		TrendProximity:      w[model.FeatureTrendProximity],
		RiskAdjustedReturn:  w[model.FeatureRiskAdjustedReturn],
		LogMarketCap:        w[model.FeatureLogMarketCap],
		InverseSpread:       w[model.FeatureInverseSpread],
		WorstMinusLast:      w[model.FeatureWorstMinusLast],
		VolatilityMinusLast: w[model.FeatureVolatilityMinusLast],
	}
}
