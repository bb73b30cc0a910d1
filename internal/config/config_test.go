package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(old))
	})
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, "./data/seed", cfg.Storage.DataDir)
	assert.Equal(t, "artifacts", cfg.Storage.ArtifactDir)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 0.7, cfg.Forecast.Alpha)
	assert.Equal(t, []int{7, 28}, cfg.Forecast.MovingAvgWindows)
	assert.Equal(t, 7, cfg.Forecast.PromoRateWindow)
	assert.Equal(t, 7, cfg.Forecast.BacktestHorizonDays)
	assert.Equal(t, 10, cfg.Forecast.PermutationRepeats)
}

func TestLoadEnvironmentNormalized(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("ENVIRONMENT", "Production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadRejectsBadStorageMode(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_MODE", "azure")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage mode")
}

func TestLoadRejectsAlphaOutOfRange(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("FORECAST_ALPHA", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha")
}

func TestDatabaseConnString(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "afs", Password: "secret",
		DBName: "afs", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://afs:secret@db:5432/afs?sslmode=disable", d.ConnString())

	d.DatabaseURL = "postgres://elsewhere/afs"
	assert.Equal(t, "postgres://elsewhere/afs", d.ConnString())
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", r.Addr())
}
