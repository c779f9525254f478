package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SurgeScreener/internal/calculator"
	"SurgeScreener/internal/screener"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider string `yaml:"provider" validate:"oneof=yahoo vstrader mock"`
		BaseURL  string `yaml:"base_url" validate:"required_if=Provider vstrader"`
		APIKey   string `yaml:"api_key"`
		Country  string `yaml:"country" validate:"required"`
	} `yaml:"data_source"`
	Screener struct {
		// Workers of 0 takes the default pool; negative runs one goroutine per ticker.
		Workers         int           `yaml:"workers"`
		Layer           string        `yaml:"layer" validate:"oneof=layer1 layer2"`
		UnitTimeout     time.Duration `yaml:"unit_timeout"`
		LookbackDays    int           `yaml:"lookback_days" validate:"gt=0"`
		RateLimit       float64       `yaml:"rate_limit" validate:"min=0"`
		RateBurst       int           `yaml:"rate_burst" validate:"min=0"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
	} `yaml:"screener"`
	Universe struct {
		Input  string `yaml:"input" validate:"required"`
		Output string `yaml:"output" validate:"required"`
	} `yaml:"universe"`
	Schedule struct {
		ScreenCron string `yaml:"screen_cron" validate:"required"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
		Format string `yaml:"format" validate:"oneof=json console pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// EnvFile is loaded before environment overrides are applied. Variables
// already present in the environment win.
var EnvFile = ".env"

// Load reads config from a YAML file, then .env, then applies environment
// variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if EnvFile != "" {
		if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", EnvFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DATA_PROVIDER", &c.DataSource.Provider)
	setString("VSTRADER_BASE_URL", &c.DataSource.BaseURL)
	setString("VSTRADER_API_KEY", &c.DataSource.APIKey)
	setString("SCREENER_COUNTRY", &c.DataSource.Country)
	setString("SCREENER_LAYER", &c.Screener.Layer)
	setString("UNIVERSE_INPUT", &c.Universe.Input)
	setString("UNIVERSE_OUTPUT", &c.Universe.Output)
	setString("CRON_SCREEN", &c.Schedule.ScreenCron)
	setString("SQLITE_PATH", &c.Database.SQLitePath)
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("SERVER_ADDR", &c.Server.Addr)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("HTTPS_PROXY", &c.Proxy)

	if v := os.Getenv("SCREENER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREENER_WORKERS: %w", err)
		}
		c.Screener.Workers = n
	}
	if v := os.Getenv("SCREENER_UNIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCREENER_UNIT_TIMEOUT: %w", err)
		}
		c.Screener.UnitTimeout = d
	}
	if v := os.Getenv("SCREENER_LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREENER_LOOKBACK_DAYS: %w", err)
		}
		c.Screener.LookbackDays = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "vstrader"
		} else {
			c.DataSource.Provider = "yahoo"
		}
	}
	if c.DataSource.Country == "" {
		c.DataSource.Country = "india"
	}
	if c.Screener.Layer == "" {
		c.Screener.Layer = "layer2"
	}
	if c.Screener.Workers == 0 {
		c.Screener.Workers = screener.DefaultWorkers
	}
	if c.Screener.UnitTimeout == 0 {
		c.Screener.UnitTimeout = screener.DefaultUnitTimeout
	}
	if c.Screener.LookbackDays == 0 {
		c.Screener.LookbackDays = calculator.DefaultLookbackDays
	}
	if c.Universe.Input == "" {
		c.Universe.Input = "data/symbols.csv"
	}
	if c.Universe.Output == "" {
		c.Universe.Output = "data/filter.csv"
	}
	if c.Schedule.ScreenCron == "" {
		// weekdays after the NSE close
		c.Schedule.ScreenCron = "0 0 16 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/surge_screener.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// TelegramEnabled reports whether a bot token and chat are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their yaml keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and returns one error listing every
// violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
