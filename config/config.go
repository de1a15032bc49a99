package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the shared settings file read by the server and the trainer.
type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`
	Database struct {
		// Path of the SQLite file; empty disables run and prediction history.
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log     LogConfig `yaml:"log"`
	Session struct {
		MaxSessions int    `yaml:"max_sessions"`
		CookieName  string `yaml:"cookie_name"`
	} `yaml:"session"`
	Training struct {
		DataPath  string  `yaml:"data_path"`
		Trees     int     `yaml:"trees"`
		MaxDepth  int     `yaml:"max_depth"`
		Seed      int64   `yaml:"seed"`
		TestRatio float64 `yaml:"test_ratio"`
		Encoding  string  `yaml:"encoding"`
	} `yaml:"training"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	config := newConfig()
	config.applyDefaults()
	return config
}

// Load reads path, fills unset values with defaults and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := newConfig()
	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// newConfig presets the fields whose zero value is a valid setting, so the
// decoder only replaces them when the file names them.
func newConfig() *Config {
	config := &Config{}
	config.Training.Seed = 42
	return config
}

func (c *Config) applyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Model.Path == "" {
		c.Model.Path = "./models/flood_rf_model.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 1024
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "floodrisk_session"
	}
	if c.Training.DataPath == "" {
		c.Training.DataPath = "flood_risk_northern_mindanao_large.csv"
	}
	if c.Training.Trees == 0 {
		c.Training.Trees = 200
	}
	if c.Training.TestRatio == 0 {
		c.Training.TestRatio = 0.2
	}
	if c.Training.Encoding == "" {
		c.Training.Encoding = "fitted"
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Http.Port < 1 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout < 0 {
		return errors.New("http.timeout must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	if c.Session.MaxSessions < 0 {
		return errors.New("session.max_sessions must not be negative")
	}
	if c.Training.Trees < 0 {
		return errors.New("training.trees must not be negative")
	}
	if c.Training.MaxDepth < 0 {
		return errors.New("training.max_depth must not be negative")
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio %v outside (0, 1)", c.Training.TestRatio)
	}
	switch c.Training.Encoding {
	case "fitted", "fixed":
	default:
		return fmt.Errorf("training.encoding %q must be fitted or fixed", c.Training.Encoding)
	}
	return nil
}
