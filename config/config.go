package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	WebPort         int           `mapstructure:"WEB_PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	PollInterval    time.Duration `mapstructure:"POLL_INTERVAL_MS"`
	PollMaxAttempts int           `mapstructure:"POLL_MAX_ATTEMPTS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TokenFile       string        `mapstructure:"TOKEN_FILE"`
	Theme           string        `mapstructure:"THEME"`
	WidgetCacheSize int           `mapstructure:"WIDGET_CACHE_SIZE"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("API_BASE_URL", "http://localhost:8000")
	viper.SetDefault("WEB_PORT", 8090)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("POLL_INTERVAL_MS", 3000)
	viper.SetDefault("POLL_MAX_ATTEMPTS", 20)
	viper.SetDefault("REQUEST_TIMEOUT", 30)
	viper.SetDefault("TOKEN_FILE", "")
	viper.SetDefault("THEME", "dark")
	viper.SetDefault("WIDGET_CACHE_SIZE", 64)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Convert ms/seconds to proper time.Duration
	config.PollInterval = config.PollInterval * time.Millisecond
	config.RequestTimeout = config.RequestTimeout * time.Second

	if config.PollMaxAttempts <= 0 {
		config.PollMaxAttempts = 20
	}
	if config.WidgetCacheSize <= 0 {
		config.WidgetCacheSize = 64
	}

	// Default the token file into the user config dir so the session
	// survives restarts.
	if config.TokenFile == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		config.TokenFile = filepath.Join(base, "aigent-client", "session.json")
	}

	return &config
}
