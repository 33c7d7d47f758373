package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run creates a message, waits for its echo, marks it read and waits for the
// read update.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080", "server base address")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	chatID := uuid.New()
	url := strings.TrimRight(*addr, "/") + "/chat/" + chatID.String()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, core.CreateAction{Text: *text}); err != nil {
		return err
	}
	created, err := receive(ctx, conn)
	if err != nil {
		return err
	}
	if created.Text != *text || created.Read {
		return fmt.Errorf("unexpected echo: %+v", created)
	}
	log.Printf("created %s in chat %s", created.ID, chatID)

	if err := send(ctx, conn, core.ReadAction{MessageID: created.ID}); err != nil {
		return err
	}
	updated, err := receive(ctx, conn)
	if err != nil {
		return err
	}
	if updated.ID != created.ID || !updated.Read {
		return fmt.Errorf("unexpected read update: %+v", updated)
	}

	log.Printf("smoke ok: %s marked read", updated.ID)
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, action core.Action) error {
	data, err := proto.EncodeAction(action)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func receive(ctx context.Context, conn *websocket.Conn) (core.ChatMessage, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("read: %w", err)
	}
	return proto.DecodeMessage(data)
}
