package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"QUIZ_PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"QUIZ_REDIS_ADDR"`
		Password string `yaml:"password" env:"QUIZ_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"QUIZ_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"QUIZ_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"QUIZ_POSTGRES_URL"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path" env:"QUIZ_SQLITE_PATH"`
	} `yaml:"sqlite"`
	Quiz struct {
		Duration     string `yaml:"duration" env:"QUIZ_DURATION"`
		TickInterval string `yaml:"tick_interval" env:"QUIZ_TICK_INTERVAL"`
	} `yaml:"quiz"`
	Catalog struct {
		Path string `yaml:"path" env:"QUIZ_CATALOG_PATH"`
		TTL  string `yaml:"ttl" env:"QUIZ_CATALOG_TTL"`
	} `yaml:"catalog"`
	Map struct {
		Path string `yaml:"path" env:"QUIZ_MAP_PATH"`
	} `yaml:"map"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"QUIZ_JWT_SECRET"`
	} `yaml:"auth"`
	Log struct {
		Level  string `yaml:"level" env:"QUIZ_LOG_LEVEL"`
		Pretty bool   `yaml:"pretty" env:"QUIZ_LOG_PRETTY"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies a .env file and QUIZ_*
// environment overrides. A missing config file yields defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// QuizTiming returns the tick interval and how many ticks a quiz lasts.
func (c Config) QuizTiming() (interval time.Duration, ticks int) {
	interval = TTLDuration(c.Quiz.TickInterval, time.Second)
	if interval <= 0 {
		interval = time.Second
	}
	total := TTLDuration(c.Quiz.Duration, 15*time.Minute)
	ticks = int(total / interval)
	if ticks < 1 {
		ticks = 1
	}
	return interval, ticks
}
