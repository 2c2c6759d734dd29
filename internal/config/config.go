// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Incentives IncentivesConfig `mapstructure:"incentives"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// IncentivesConfig contains incentive engine and gamification settings.
type IncentivesConfig struct {
	MaxWindowDays     int    `mapstructure:"max_window_days"`
	DefaultWindowDays int    `mapstructure:"default_window_days"`
	DefaultCurrency   string `mapstructure:"default_currency"`
	// BonusZeroThresholdFires controls whether a BONUS_ON_TARGET rule with a
	// zero threshold pays out when the metric value is also zero.
	BonusZeroThresholdFires bool         `mapstructure:"bonus_zero_threshold_fires"`
	CacheTTL                int          `mapstructure:"cache_ttl"`
	Badges                  BadgesConfig `mapstructure:"badges"`
}

// BadgesConfig contains gamification badge thresholds.
type BadgesConfig struct {
	DailyStarterStreak        int `mapstructure:"daily_starter_streak"`
	ConsistentPerformerDays   int `mapstructure:"consistent_performer_days"`
	TopEarnerPercentile       int `mapstructure:"top_earner_percentile"`
}

// SchedulerConfig contains daily commit scheduler settings.
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Time         string `mapstructure:"time"`
	Timezone     string `mapstructure:"timezone"`
	SkipWeekends bool   `mapstructure:"skip_weekends"`
}

// MetricsConfig contains Prometheus metrics exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/incentive-engine/")
	}

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Incentives configuration
	_ = v.BindEnv("incentives.max_window_days", "INCENTIVES_MAX_WINDOW_DAYS")
	_ = v.BindEnv("incentives.default_window_days", "INCENTIVES_DEFAULT_WINDOW_DAYS")
	_ = v.BindEnv("incentives.default_currency", "INCENTIVES_DEFAULT_CURRENCY")
	_ = v.BindEnv("incentives.bonus_zero_threshold_fires", "INCENTIVES_BONUS_ZERO_THRESHOLD_FIRES")
	_ = v.BindEnv("incentives.cache_ttl", "INCENTIVES_CACHE_TTL")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.time", "SCHEDULER_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.skip_weekends", "SCHEDULER_SKIP_WEEKENDS")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults registers defaults for optional settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("incentives.max_window_days", 90)
	v.SetDefault("incentives.default_window_days", 30)
	v.SetDefault("incentives.default_currency", "USD")
	v.SetDefault("incentives.bonus_zero_threshold_fires", true)
	v.SetDefault("incentives.cache_ttl", 60)
	v.SetDefault("incentives.badges.daily_starter_streak", 3)
	v.SetDefault("incentives.badges.consistent_performer_days", 10)
	v.SetDefault("incentives.badges.top_earner_percentile", 90)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Incentives.MaxWindowDays <= 0 {
		return fmt.Errorf("incentives.max_window_days must be positive")
	}
	if c.Incentives.DefaultWindowDays > c.Incentives.MaxWindowDays {
		return fmt.Errorf("incentives.default_window_days cannot exceed incentives.max_window_days")
	}
	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
