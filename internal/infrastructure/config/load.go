package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Применяем переменные окружения (переопределяют значения из файла)
	applyEnvOverrides(&cfg)

	// Symbols are buffer keys and must be lower-case regardless of how the
	// config spells them.
	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToLower(strings.TrimSpace(s))
	}

	if cfg.Server.ReadTimeout, err = parseDuration(cfg.Server.ReadTimeoutStr, 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDuration(cfg.Server.WriteTimeoutStr, 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.ShutdownTimeout, err = parseDuration(cfg.Server.ShutdownTimeoutStr, 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Feed.ReconnectDelay, err = parseDuration(cfg.Feed.ReconnectDelayStr, 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Aggregation.Interval, err = parseDuration(cfg.Aggregation.IntervalStr, time.Minute); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func applyEnvOverrides(cfg *Config) {
	// PostgreSQL
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.PostgreSQL.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.PostgreSQL.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.PostgreSQL.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.PostgreSQL.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.PostgreSQL.Database = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Feed
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		cfg.Feed.WSURL = v
	}

	// Symbols
	if v := os.Getenv("TRADING_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				symbols = append(symbols, strings.ToLower(s))
			}
		}
		if len(symbols) > 0 {
			cfg.Symbols = symbols
		}
	}

	// Server
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host, c.PostgreSQL.Port, c.PostgreSQL.User,
		c.PostgreSQL.Password, c.PostgreSQL.Database, c.PostgreSQL.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
