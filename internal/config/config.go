package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/chatrelay/internal/core"
)

// ErrInvalid marks a configuration that cannot be served.
var ErrInvalid = errors.New("invalid config")

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	// WSRateLimit caps inbound frames per connection and minute; 0 is unlimited.
	WSRateLimit       int           `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`
	Chat              ChatConfig    `mapstructure:"chat" yaml:"chat"`
}

// ChatConfig tunes room lifetime and buffering.
type ChatConfig struct {
	KeepAlive  time.Duration `mapstructure:"keep_alive" yaml:"keep_alive"`
	Tick       time.Duration `mapstructure:"tick" yaml:"tick"`
	BufferSize int           `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   1 << 20,
		DatabasePath:      "chatrelay.db",
		LogLevel:          "info",
		Chat: ChatConfig{
			KeepAlive:  core.DefaultKeepAlive,
			Tick:       core.DefaultTick,
			BufferSize: core.DefaultBufferSize,
		},
	}
}

// Options converts the chat section to registry options.
func (c ChatConfig) Options() core.Options {
	return core.Options{
		KeepAlive:  c.KeepAlive,
		Tick:       c.Tick,
		BufferSize: c.BufferSize,
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
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.WSRateLimit != 0 {
		c.WSRateLimit = other.WSRateLimit
	}
	if other.Chat.KeepAlive != 0 {
		c.Chat.KeepAlive = other.Chat.KeepAlive
	}
	if other.Chat.Tick != 0 {
		c.Chat.Tick = other.Chat.Tick
	}
	if other.Chat.BufferSize != 0 {
		c.Chat.BufferSize = other.Chat.BufferSize
	}
}

// Validate reports the first setting the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	case c.DatabasePath == "":
		return fmt.Errorf("%w: database_path is empty", ErrInvalid)
	case c.MaxMessageBytes <= 0:
		return fmt.Errorf("%w: max_message_bytes must be positive, got %d", ErrInvalid, c.MaxMessageBytes)
	case c.WSRateLimit < 0:
		return fmt.Errorf("%w: ws_rate_limit must not be negative, got %d", ErrInvalid, c.WSRateLimit)
	case c.Chat.KeepAlive <= 0:
		return fmt.Errorf("%w: chat.keep_alive must be positive, got %s", ErrInvalid, c.Chat.KeepAlive)
	case c.Chat.Tick <= 0:
		return fmt.Errorf("%w: chat.tick must be positive, got %s", ErrInvalid, c.Chat.Tick)
	case c.Chat.BufferSize <= 0:
		return fmt.Errorf("%w: chat.buffer_size must be positive, got %d", ErrInvalid, c.Chat.BufferSize)
	}
	return nil
}
