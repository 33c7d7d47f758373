package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/store"
	"github.com/vovakirdan/chatrelay/internal/store/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	ts    *httptest.Server
	chat  *core.ChatService
	store store.Store
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return st
}

func startTestServer(t *testing.T, opts core.Options, mutate func(*config.Config)) *testEnv {
	t.Helper()

	disabledLogger := zerolog.New(nil)
	st := createTestStore(t)
	t.Cleanup(func() { _ = st.Close() })

	reg := core.NewRegistry(opts, &disabledLogger)
	chat := core.NewChatService(reg, st, &disabledLogger)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	server := NewServer(chat, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	// Runs first: closing the rooms ends the open WebSocket sessions.
	t.Cleanup(reg.Close)

	return &testEnv{ts: ts, chat: chat, store: st}
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, chatID uuid.UUID) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/chat/" + chatID.String()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", chatID, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// waitSubscribers blocks until the chat's live room has n subscribers.
func (e *testEnv) waitSubscribers(t *testing.T, chatID uuid.UUID, n int) *core.Room {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if room, ok := e.chat.Rooms().Lookup(chatID); ok && room.SubscriberCount() == n {
			return room
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("chat %s never reached %d subscribers", chatID, n)
	return nil
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frame string) {
	t.Helper()

	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.ChatMessage {
	t.Helper()

	var msg proto.ChatMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

// expectSilence fails if conn receives a frame within d. The connection is
// unusable afterwards.
func expectSilence(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	if _, data, err := conn.Read(ctx); err == nil {
		t.Fatalf("unexpected frame: %s", data)
	}
}
