package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "CHATRELAY"
	envConfigDefaultPath = "CHATRELAY_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// LoadDotEnv exports variables from the given .env files (".env" when none)
// into the process environment. Missing files are skipped; variables already
// set win.
func LoadDotEnv(logger *zerolog.Logger, paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		if logger != nil {
			logger.Debug().Str("path", path).Msg("loaded env file")
		}
	}
	return nil
}

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("ws_rate_limit", cfg.WSRateLimit)
	v.SetDefault("chat.keep_alive", cfg.Chat.KeepAlive)
	v.SetDefault("chat.tick", cfg.Chat.Tick)
	v.SetDefault("chat.buffer_size", cfg.Chat.BufferSize)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

// writeDefaultConfig stores durations in their readable form ("10m0s").
func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(fileConfig{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.String(),
		ShutdownTimeout:   cfg.ShutdownTimeout.String(),
		MaxMessageBytes:   cfg.MaxMessageBytes,
		DatabasePath:      cfg.DatabasePath,
		LogLevel:          cfg.LogLevel,
		WSRateLimit:       cfg.WSRateLimit,
		Chat: fileChatConfig{
			KeepAlive:  cfg.Chat.KeepAlive.String(),
			Tick:       cfg.Chat.Tick.String(),
			BufferSize: cfg.Chat.BufferSize,
		},
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

type fileConfig struct {
	Addr              string         `yaml:"addr"`
	ReadHeaderTimeout string         `yaml:"read_header_timeout"`
	ShutdownTimeout   string         `yaml:"shutdown_timeout"`
	MaxMessageBytes   int64          `yaml:"max_message_bytes"`
	DatabasePath      string         `yaml:"database_path"`
	LogLevel          string         `yaml:"log_level"`
	WSRateLimit       int            `yaml:"ws_rate_limit"`
	Chat              fileChatConfig `yaml:"chat"`
}

type fileChatConfig struct {
	KeepAlive  string `yaml:"keep_alive"`
	Tick       string `yaml:"tick"`
	BufferSize int    `yaml:"buffer_size"`
}
