package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatrelay/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "chat.db")
	cfg.ShutdownTimeout = time.Second
	return &cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger := zerolog.Nop()
	cfg := testConfig(t)
	cfg.Chat.BufferSize = 0

	_, err := New(cfg, &logger)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	application, err := New(testConfig(t), &logger)
	require.NoError(t, err)

	room := application.rooms.GetOrCreate(uuid.New())
	sub := room.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, ok := <-sub.C()
	require.False(t, ok, "rooms are closed on shutdown")
	require.True(t, application.rooms.Closed())
}

func TestRunReportsListenError(t *testing.T) {
	logger := zerolog.Nop()
	cfg := testConfig(t)
	cfg.Addr = "256.0.0.1:bad"

	application, err := New(cfg, &logger)
	require.NoError(t, err)

	err = application.Run(context.Background())
	require.Error(t, err)
}
