package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"adaptive-coach/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Intervals IntervalsConfig `mapstructure:"intervals"`
	Enhance   EnhanceConfig   `mapstructure:"enhance"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the storage backend.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the daily decision cadence. Cron takes precedence
// over Interval when set.
type SchedulerConfig struct {
	Cron            string        `mapstructure:"cron"`
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	Timezone        string        `mapstructure:"timezone"`
}

// IntervalsConfig covers intervals.icu API access.
type IntervalsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AthleteID      string        `mapstructure:"athlete_id"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	WellnessDays   int           `mapstructure:"wellness_days"`
	ActivityDays   int           `mapstructure:"activity_days"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// EnhanceConfig configures the optional generative enhancement endpoint.
type EnhanceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	BaselineMaxAge            time.Duration `mapstructure:"baseline_max_age"`
	IllnessDaysToCheck        int           `mapstructure:"illness_days_to_check"`
	IllnessMinConsecutiveDays int           `mapstructure:"illness_min_consecutive_days"`
	YellowModifier            float64       `mapstructure:"yellow_modifier"`
	GoalCTL                   float64       `mapstructure:"goal_ctl"`
	GapLookbackDays           int           `mapstructure:"gap_lookback_days"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram alert parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig exposes the Prometheus endpoint during `run`.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COACHD")
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
	v.SetDefault("app.name", "coachd")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/coachd.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("scheduler.cron", "")
	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x636f6163))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("intervals.base_url", "https://intervals.icu/api/v1")
	v.SetDefault("intervals.athlete_id", "0")
	v.SetDefault("intervals.api_key", "")
	v.SetDefault("intervals.request_timeout", "15s")
	v.SetDefault("intervals.wellness_days", 45)
	v.SetDefault("intervals.activity_days", 42)
	v.SetDefault("intervals.user_agent", "")

	v.SetDefault("enhance.enabled", false)
	v.SetDefault("enhance.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("enhance.model", "gemini-2.0-flash")
	v.SetDefault("enhance.api_key", "")
	v.SetDefault("enhance.request_timeout", "20s")

	v.SetDefault("engine.baseline_max_age", "0s")
	v.SetDefault("engine.illness_days_to_check", 3)
	v.SetDefault("engine.illness_min_consecutive_days", 2)
	v.SetDefault("engine.yellow_modifier", 0.85)
	v.SetDefault("engine.goal_ctl", 0.0)
	v.SetDefault("engine.gap_lookback_days", 30)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")

	v.SetDefault("metrics.listen", "")

	v.SetDefault("export.max_data_points", 100000)
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
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be one of memory, sqlite, postgres")
	}
	if c.Scheduler.Cron == "" && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if c.Intervals.WellnessDays < 7 {
		return fmt.Errorf("intervals.wellness_days must be at least 7")
	}
	if c.Intervals.ActivityDays <= 0 {
		return fmt.Errorf("intervals.activity_days must be greater than zero")
	}
	if c.Engine.YellowModifier <= 0 || c.Engine.YellowModifier > 1.05 {
		return fmt.Errorf("engine.yellow_modifier must be in (0, 1.05]")
	}
	if c.Engine.BaselineMaxAge < 0 {
		return fmt.Errorf("engine.baseline_max_age cannot be negative")
	}
	if c.Engine.GoalCTL < 0 {
		return fmt.Errorf("engine.goal_ctl cannot be negative")
	}
	if c.Enhance.Enabled && c.Enhance.APIKey == "" {
		return fmt.Errorf("enhance.api_key is required when enhance.enabled is set")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// Location resolves scheduler.timezone; decision days are calendar days there.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Scheduler.Timezone)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
