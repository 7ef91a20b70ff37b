package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// Handshake windows.
	StaleWindow  time.Duration `mapstructure:"stale_window" yaml:"stale_window"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl" yaml:"challenge_ttl"`

	// Room behavior.
	HistoryLimit int           `mapstructure:"history_limit" yaml:"history_limit"`
	JoinPause    time.Duration `mapstructure:"join_pause" yaml:"join_pause"`

	// Optional overrides for the embedded world catalog and lobby layout.
	WorldsPath string `mapstructure:"worlds_path" yaml:"worlds_path"`
	LobbyPath  string `mapstructure:"lobby_path" yaml:"lobby_path"`

	// New websocket connections accepted per minute; zero disables the cap.
	ConnPerMinute int `mapstructure:"conn_per_minute" yaml:"conn_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		StaleWindow:       5 * time.Minute,
		ChallengeTTL:      2 * time.Minute,
		HistoryLimit:      5,
		JoinPause:         time.Second,
		ConnPerMinute:     120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.StaleWindow != 0 {
		c.StaleWindow = other.StaleWindow
	}
	if other.ChallengeTTL != 0 {
		c.ChallengeTTL = other.ChallengeTTL
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.JoinPause != 0 {
		c.JoinPause = other.JoinPause
	}
	if other.WorldsPath != "" {
		c.WorldsPath = other.WorldsPath
	}
	if other.LobbyPath != "" {
		c.LobbyPath = other.LobbyPath
	}
	if other.ConnPerMinute != 0 {
		c.ConnPerMinute = other.ConnPerMinute
	}
}
