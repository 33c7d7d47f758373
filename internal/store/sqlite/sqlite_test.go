package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/chatrelay/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateMessageDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	receivedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return receivedAt }

	chatID := uuid.New()
	msg, err := s.CreateMessage(ctx, store.NewMessage{ChatID: chatID, Text: "hello"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if msg.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if msg.Read {
		t.Fatalf("new message must be unread")
	}
	if !msg.CreatedAt.Equal(receivedAt) || !msg.SentAt.Equal(receivedAt) {
		t.Fatalf("expected timestamps %v, got sent=%v created=%v", receivedAt, msg.SentAt, msg.CreatedAt)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.ChatID != chatID || got.Text != "hello" || got.FromSpecialist || got.Read {
		t.Fatalf("unexpected stored message: %+v", got)
	}
	if !got.CreatedAt.Equal(receivedAt) {
		t.Fatalf("created_at round-trip: want %v, got %v", receivedAt, got.CreatedAt)
	}
}

func TestCreateMessageKeepsClientSentAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sentAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	msg, err := s.CreateMessage(ctx, store.NewMessage{
		ChatID:         uuid.New(),
		Text:           "from specialist",
		FromSpecialist: true,
		SentAt:         &sentAt,
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if !got.SentAt.Equal(sentAt) {
		t.Fatalf("expected sent_at %v, got %v", sentAt, got.SentAt)
	}
	if !got.FromSpecialist {
		t.Fatalf("expected from_specialist to be persisted")
	}
}

func TestGetMessageNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMessage(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg, err := s.CreateMessage(ctx, store.NewMessage{ChatID: uuid.New(), Text: "read me"})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	updated, err := s.MarkRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !updated.Read {
		t.Fatalf("expected message to be read")
	}

	// Marking again is a no-op that still returns the row.
	again, err := s.MarkRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !again.Read || again.Text != "read me" {
		t.Fatalf("unexpected message after second mark read: %+v", again)
	}

	if _, err := s.MarkRead(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestListMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chatID := uuid.New()
	otherChat := uuid.New()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		chat uuid.UUID
		text string
	}{
		{chatID, "first"},
		{chatID, "second"},
		{otherChat, "elsewhere"},
		{chatID, "third"},
	}
	for i, tt := range tests {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		if _, err := s.CreateMessage(ctx, store.NewMessage{ChatID: tt.chat, Text: tt.text}); err != nil {
			t.Fatalf("create %q: %v", tt.text, err)
		}
	}

	all, err := s.ListMessages(ctx, chatID, 10, nil)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	want := []string{"third", "second", "first"}
	if len(all) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(all))
	}
	for i, msg := range all {
		if msg.Text != want[i] {
			t.Errorf("expected %q at index %d, got %q", want[i], i, msg.Text)
		}
	}

	before := all[1].CreatedAt
	older, err := s.ListMessages(ctx, chatID, 10, &before)
	if err != nil {
		t.Fatalf("list older messages: %v", err)
	}
	if len(older) != 1 || older[0].Text != "first" {
		t.Fatalf("expected only the first message before %v, got %d", before, len(older))
	}

	limited, err := s.ListMessages(ctx, chatID, 2, nil)
	if err != nil {
		t.Fatalf("list limited messages: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(limited))
	}
}
