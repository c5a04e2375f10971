package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// Telegram
	TelegramToken string `env:"TELEGRAM_TOKEN" env-required:"true"`

	// Database
	PostgresDSN   string `env:"POSTGRES_DSN" env-required:"true"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Job board backend
	BoardAPIBaseURL string        `env:"BOARD_API_BASE_URL" env-default:"http://localhost:5000"`
	BoardAPITimeout time.Duration `env:"BOARD_API_TIMEOUT" env-default:"30s"`

	// Listing behaviour
	PageSize        int           `env:"PAGE_SIZE" env-default:"24"`
	JobsFetchLimit  int           `env:"JOBS_FETCH_LIMIT" env-default:"100"`
	SearchDebounce  time.Duration `env:"SEARCH_DEBOUNCE" env-default:"300ms"`
	CollationLocale string        `env:"COLLATION_LOCALE" env-default:"en"`

	// Admin digest
	DigestSchedule string `env:"DIGEST_SCHEDULE" env-default:"@every 1h"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram token is empty")
	}

	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN is empty")
	}

	u, err := url.Parse(c.BoardAPIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid board API base URL: %q", c.BoardAPIBaseURL)
	}

	if c.BoardAPITimeout <= 0 {
		return fmt.Errorf("board API timeout must be positive")
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100")
	}

	if c.JobsFetchLimit < 1 {
		return fmt.Errorf("jobs fetch limit must be positive")
	}

	if c.SearchDebounce < 0 {
		return fmt.Errorf("search debounce must not be negative")
	}

	if _, err := cron.ParseStandard(c.DigestSchedule); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", c.DigestSchedule, err)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}
