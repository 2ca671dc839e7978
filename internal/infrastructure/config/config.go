package config

import "time"

type Config struct {
	Server struct {
		Port               int    `yaml:"port"`
		ReadTimeoutStr     string `yaml:"read_timeout"`
		WriteTimeoutStr    string `yaml:"write_timeout"`
		ShutdownTimeoutStr string `yaml:"shutdown_timeout"`
		ReadTimeout        time.Duration `yaml:"-"`
		WriteTimeout       time.Duration `yaml:"-"`
		ShutdownTimeout    time.Duration `yaml:"-"`
	} `yaml:"server"`

	PostgreSQL struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"postgresql"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Feed struct {
		WSURL             string `yaml:"ws_url"`
		ReconnectDelayStr string `yaml:"reconnect_delay"`
		ReconnectDelay    time.Duration `yaml:"-"`
	} `yaml:"feed"`

	// Buffer selects the trade-buffer backend. Retention is a count cap on
	// buffered trades per instrument, not a time window.
	Buffer struct {
		Backend   string `yaml:"backend"`
		Retention int    `yaml:"retention"`
	} `yaml:"buffer"`

	// Symbols are the lower-case stream keys subscribed on the feed; they
	// are canonicalized upper-case when persisted.
	Symbols []string `yaml:"symbols"`

	Aggregation struct {
		IntervalStr string        `yaml:"interval"`
		Interval    time.Duration `yaml:"-"`
	} `yaml:"aggregation"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}
