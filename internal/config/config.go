package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level" env:"WGRAM_LOG_LEVEL"`
}

type TelegramConfig struct {
	APIID       int    `yaml:"api_id" env:"TELEGRAM_API_ID"`
	APIHash     string `yaml:"api_hash" env:"TELEGRAM_API_HASH"`
	SessionFile string `yaml:"session_file" env:"TELEGRAM_SESSION_FILE"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"WGRAM_ADDR"`
}

// Load reads the optional yaml file at path, overlays environment
// variables and fills in defaults. A missing file is not an error; the
// original deployment configures everything through the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env + defaults
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:3000"
	}
	if cfg.Telegram.SessionFile == "" {
		cfg.Telegram.SessionFile = "wgram.session"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}
