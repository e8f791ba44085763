package config

import "time"

// DefaultRoomCodeAlphabet omits characters that are easy to misread (i, l, o).
const DefaultRoomCodeAlphabet = "abcdefghjkmnpqrstuvwxyz"

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendBuffer         int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	RoomCodeLength     int           `mapstructure:"room_code_length" yaml:"room_code_length"`
	RoomCodeAlphabet   string        `mapstructure:"room_code_alphabet" yaml:"room_code_alphabet"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path"`
	HistoryBuffer      int           `mapstructure:"history_buffer" yaml:"history_buffer"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		MaxMessageBytes:    1 << 20,
		SendBuffer:         256,
		RoomCodeLength:     3,
		RoomCodeAlphabet:   DefaultRoomCodeAlphabet,
		RateLimitPerMinute: 0,
		AllowedOrigins:     []string{"*"},
		DatabasePath:       "",
		HistoryBuffer:      64,
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
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.RoomCodeLength != 0 {
		c.RoomCodeLength = other.RoomCodeLength
	}
	if other.RoomCodeAlphabet != "" {
		c.RoomCodeAlphabet = other.RoomCodeAlphabet
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = append([]string(nil), other.AllowedOrigins...)
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.HistoryBuffer != 0 {
		c.HistoryBuffer = other.HistoryBuffer
	}
}

// Validate replaces unusable values with defaults and returns the sanitized config.
func (c Config) Validate() Config {
	def := Default()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = def.MaxMessageBytes
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.RoomCodeLength <= 0 {
		c.RoomCodeLength = def.RoomCodeLength
	}
	if c.RoomCodeAlphabet == "" {
		c.RoomCodeAlphabet = def.RoomCodeAlphabet
	}
	if c.RateLimitPerMinute < 0 {
		c.RateLimitPerMinute = 0
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = def.AllowedOrigins
	}
	if c.HistoryBuffer <= 0 {
		c.HistoryBuffer = def.HistoryBuffer
	}
	return c
}
