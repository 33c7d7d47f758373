package core

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newManualRegistry returns a registry whose reapers never fire on their own;
// tests drive idle checks through sweep.
func newManualRegistry(t *testing.T, keepAlive time.Duration) (*Registry, *fakeClock) {
	t.Helper()

	logger := zerolog.New(nil)
	clock := newFakeClock()
	reg := NewRegistry(Options{KeepAlive: keepAlive, Tick: time.Hour, BufferSize: 4}, &logger)
	reg.now = clock.Now
	t.Cleanup(reg.Close)
	return reg, clock
}

func testMessage(chatID uuid.UUID, text string) ChatMessage {
	now := time.Now().UTC()
	return ChatMessage{
		ID:        uuid.New(),
		ChatID:    chatID,
		Text:      text,
		SentAt:    now,
		CreatedAt: now,
	}
}

func mustMessage(t *testing.T, ch <-chan ChatMessage) ChatMessage {
	t.Helper()

	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed while waiting for a message")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("expected message not received")
	}
	return ChatMessage{}
}

func mustNoMessage(t *testing.T, ch <-chan ChatMessage) {
	t.Helper()

	select {
	case msg, ok := <-ch:
		if ok {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(50 * time.Millisecond):
	}
}
