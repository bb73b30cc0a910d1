package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Forecast    ForecastConfig `mapstructure:"forecast"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StorageConfig selects the dataset/artifact backend. Mode is either
// "local" (filesystem under DataDir) or "postgres".
type StorageConfig struct {
	Mode        string `mapstructure:"mode"`
	DataDir     string `mapstructure:"data_dir"`
	ArtifactDir string `mapstructure:"artifact_dir"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
}

// ConnString returns a pgx connection string, preferring DatabaseURL.
func (d DatabaseConfig) ConnString() string {
	if d.DatabaseURL != "" {
		return d.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type ForecastConfig struct {
	Alpha               float64 `mapstructure:"alpha"`
	MovingAvgWindows    []int   `mapstructure:"moving_avg_windows"`
	PromoRateWindow     int     `mapstructure:"promo_rate_window"`
	BacktestHorizonDays int     `mapstructure:"backtest_horizon_days"`
	PermutationRepeats  int     `mapstructure:"permutation_repeats"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	switch config.Storage.Mode {
	case "local", "postgres":
	default:
		return nil, fmt.Errorf("unsupported storage mode: %q", config.Storage.Mode)
	}

	if config.Forecast.Alpha < 0 || config.Forecast.Alpha > 1 {
		return nil, fmt.Errorf("forecast alpha must be in [0, 1], got %g", config.Forecast.Alpha)
	}

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Storage
	viper.SetDefault("storage.mode", "local")
	viper.SetDefault("storage.data_dir", "./data/seed")
	viper.SetDefault("storage.artifact_dir", "artifacts")

	// Database (used when storage.mode is postgres)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "afs")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")

	// Redis (optional trend cache)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl_hours", 24)

	// Forecasting
	viper.SetDefault("forecast.alpha", 0.7)
	viper.SetDefault("forecast.moving_avg_windows", []int{7, 28})
	viper.SetDefault("forecast.promo_rate_window", 7)
	viper.SetDefault("forecast.backtest_horizon_days", 7)
	viper.SetDefault("forecast.permutation_repeats", 10)
}
