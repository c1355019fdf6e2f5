// Package config loads the runtime configuration from the environment, with
// an optional .env file for development setups.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultDataDir      = ".mobiorder"
	defaultAPIURL       = "https://localhost:8080/api/"
	defaultCulture      = "nl-BE"
	defaultLogLevel     = "info"
	defaultSyncInterval = 30 * time.Minute
	defaultRetention    = 90
	defaultDashboard    = "127.0.0.1:8372"
)

type Config struct {
	DataDir string `mapstructure:"data_dir"`
	// DBPath and SessionPath are derived from DataDir.
	DBPath      string
	SessionPath string
	LogPath     string

	APIURL     string        `mapstructure:"api_url"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
	Culture    string        `mapstructure:"culture"`

	LogLevel string `mapstructure:"log_level"`

	SyncInterval time.Duration `mapstructure:"sync_interval"`
	// RetentionDays is how long confirmed carts are kept before the purge.
	RetentionDays int `mapstructure:"retention_days"`

	DashboardAddr string `mapstructure:"dashboard_addr"`
}

// Load reads MOBIORDER_* environment variables, a .env file when present,
// and fills in defaults. The data directory is created on the way.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("mobiorder")
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("api_timeout", "30s")
	v.SetDefault("culture", defaultCulture)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("sync_interval", defaultSyncInterval.String())
	v.SetDefault("retention_days", defaultRetention)
	v.SetDefault("dashboard_addr", defaultDashboard)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DataDir == defaultDataDir {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.DataDir = filepath.Join(home, defaultDataDir)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "mobiorder.db")
	cfg.SessionPath = filepath.Join(cfg.DataDir, "session.json")
	cfg.LogPath = filepath.Join(cfg.DataDir, "mobiorder.log")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive")
	}
	return nil
}
