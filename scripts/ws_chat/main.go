package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080", "server base address")
	chat := flag.String("chat", "", "chat id (a new one when empty)")
	specialist := flag.Bool("specialist", false, "author messages as the specialist")
	flag.Parse()

	chatID := uuid.New()
	if *chat != "" {
		parsed, err := uuid.Parse(*chat)
		if err != nil {
			return fmt.Errorf("chat id: %w", err)
		}
		chatID = parsed
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	url := strings.TrimRight(*addr, "/") + "/chat/" + chatID.String()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to chat %s\n", chatID)
	fmt.Println("Type a message and press Enter to send, /read <id> to mark one read. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *specialist)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		msg, err := proto.DecodeMessage(data)
		if err != nil {
			log.Printf("decode message: %v", err)
			continue
		}

		author := "user"
		if msg.FromSpecialist {
			author = "specialist"
		}
		status := ""
		if msg.Read {
			status = " (read)"
		}
		fmt.Printf("[%s] %s %s: %s%s\n", msg.SentAt.Local().Format("15:04:05"), msg.ID, author, msg.Text, status)
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, specialist bool) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			action, err := parseLine(line, specialist)
			if err != nil {
				log.Printf("%v", err)
				continue
			}
			if action == nil {
				continue
			}

			data, err := proto.EncodeAction(action)
			if err != nil {
				log.Printf("encode action: %v", err)
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func parseLine(line string, specialist bool) (core.Action, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil, nil
	}

	if rest, ok := strings.CutPrefix(text, "/read"); ok {
		id, err := uuid.Parse(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("usage: /read <message id>")
		}
		return core.ReadAction{MessageID: id}, nil
	}
	return core.CreateAction{Text: text, FromSpecialist: specialist}, nil
}
