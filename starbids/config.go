package starbids

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/starbids/starbids/starbids/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log       LogConfig         `toml:"log"`
	HTTP      HTTPConfig        `toml:"http"`
	DB        database.DBConfig `toml:"db"`
	Scheduler SchedulerConfig   `toml:"scheduler"`
	Telegram  TelegramConfig    `toml:"telegram"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type HTTPConfig struct {
	Addr      string `toml:"addr"`
	JWTSecret string `toml:"jwt_secret"`
}

type SchedulerConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

type TelegramConfig struct {
	Token   string `toml:"token"`
	Enabled bool   `toml:"enabled"`
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		c.Scheduler.IntervalSeconds = 5
	}
}

func (c *Config) validate() error {
	// An empty secret would mean every token verifies against an empty
	// HS256 key; refuse to start instead.
	if c.HTTP.JWTSecret == "" {
		return fmt.Errorf("http.jwt_secret must be set")
	}
	return nil
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}
