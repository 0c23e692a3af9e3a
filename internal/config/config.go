package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Session struct {
		IdleTimeout   string `yaml:"idle_timeout"`
		QuestionCount int    `yaml:"question_count"`
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"session"`
	Import struct {
		MaxRows int `yaml:"max_rows"`
	} `yaml:"import"`
	Analytics struct {
		RecentScores   int     `yaml:"recent_scores"`
		TrendThreshold float64 `yaml:"trend_threshold"`
	} `yaml:"analytics"`
	Speech struct {
		Endpoint     string `yaml:"endpoint"`
		APIKey       string `yaml:"api_key"`
		Model        string `yaml:"model"`
		MaxTextLen   int    `yaml:"max_text_len"`
		RateLimit    int    `yaml:"rate_limit"`
		RateWindow   string `yaml:"rate_window"`
		MaxRetries   int    `yaml:"max_retries"`
		RetryBackoff string `yaml:"retry_backoff"`
	} `yaml:"speech"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v unless it is zero, in which case it returns the fallback.
func IntOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

// FloatOr returns v unless it is zero, in which case it returns the fallback.
func FloatOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
