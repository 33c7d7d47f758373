package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be created")

	// The written file must load back to the same values.
	again, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, Default(), again)
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`addr: ":9000"
database_path: "/tmp/chat.db"
chat:
  keep_alive: 30s
  tick: 5s
  buffer_size: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CHATRELAY_CHAT_BUFFER_SIZE", "7")
	t.Setenv("CHATRELAY_LOG_LEVEL", "debug")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "/tmp/chat.db", cfg.DatabasePath)
	require.Equal(t, 30*time.Second, cfg.Chat.KeepAlive)
	require.Equal(t, 5*time.Second, cfg.Chat.Tick)
	require.Equal(t, 7, cfg.Chat.BufferSize)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, int64(1<<20), cfg.MaxMessageBytes)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o600))

	_, _, err := Load(nil, path)
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHATRELAY_ADDR=:7070\n"), 0o600))

	t.Setenv("CHATRELAY_ADDR", "")
	require.NoError(t, os.Unsetenv("CHATRELAY_ADDR"))

	require.NoError(t, LoadDotEnv(nil, path, filepath.Join(dir, "missing.env")))
	require.Equal(t, ":7070", os.Getenv("CHATRELAY_ADDR"))

	cfg, _, err := Load(nil, filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Addr)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":        func(c *Config) { c.Addr = "" },
		"empty db":          func(c *Config) { c.DatabasePath = "" },
		"zero read limit":   func(c *Config) { c.MaxMessageBytes = 0 },
		"negative keep":     func(c *Config) { c.Chat.KeepAlive = -time.Second },
		"zero tick":         func(c *Config) { c.Chat.Tick = 0 },
		"zero buffer":       func(c *Config) { c.Chat.BufferSize = 0 },
		"negative buffer":   func(c *Config) { c.Chat.BufferSize = -1 },
		"zero keep-alive":   func(c *Config) { c.Chat.KeepAlive = 0 },
		"negative max size": func(c *Config) { c.MaxMessageBytes = -5 },
	}

	require.NoError(t, Default().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", Chat: ChatConfig{Tick: time.Second}})

	require.Equal(t, ":1234", cfg.Addr)
	require.Equal(t, time.Second, cfg.Chat.Tick)
	require.Equal(t, Default().Chat.KeepAlive, cfg.Chat.KeepAlive)
	require.Equal(t, Default().DatabasePath, cfg.DatabasePath)
}

func TestValidateRejectsNegativeRateLimit(t *testing.T) {
	cfg := Default()
	cfg.WSRateLimit = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.WSRateLimit = 0
	require.NoError(t, cfg.Validate())
}
