package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

// WSHandler upgrades HTTP connections on /chat/{chatId} and bridges them to
// the chat's room.
type WSHandler struct {
	chat            *core.ChatService
	maxMessageBytes int64
	rateLimit       int
	log             *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. rateLimit caps inbound frames
// per connection and minute; zero disables the cap.
func NewWSHandler(chat *core.ChatService, maxMessageBytes int64, rateLimit int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		chat:            chat,
		maxMessageBytes: maxMessageBytes,
		rateLimit:       rateLimit,
		log:             logger,
	}
}

// ServeHTTP serves GET /chat/{chatId}.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	chatID, err := uuid.Parse(r.PathValue("chatId"))
	if err != nil {
		h.log.Warn().Str("chat_id", r.PathValue("chatId")).Msg("ws rejected: invalid chat id")
		writeError(w, stdhttp.StatusBadRequest, "invalid chat id")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", chatID.String()).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	logger := h.log.With().
		Str("chat_id", chatID.String()).
		Str("conn_id", uuid.NewString()).
		Logger()
	logger.Info().Msg("ws connected")
	started := time.Now()

	// Subscribe before reading so the connection sees the echo of its first action.
	sub := h.chat.Rooms().GetOrCreate(chatID).Subscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, chatID, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, chatID, sub, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	logger.Info().Dur("duration", time.Since(started)).Msg("ws disconnected")
	conn.Close(status, reason)
}

// readLoop decodes inbound frames and applies them. Bad frames and failed
// actions are logged and skipped; only transport errors end the loop.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, chatID uuid.UUID, logger *zerolog.Logger) error {
	limiter := newRateLimiter(h.rateLimit, time.Minute)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			logger.Warn().Msg("rate limit exceeded, frame dropped")
			continue
		}

		action, err := proto.DecodeAction(data)
		if err != nil {
			logger.Warn().Err(err).Int("bytes", len(data)).Msg("failed to decode frame")
			continue
		}

		msg, err := h.chat.Handle(ctx, chatID, action)
		if err != nil {
			logger.Warn().Err(err).Msg("action failed")
			continue
		}
		if msg != nil {
			logger.Debug().Str("message_id", msg.ID.String()).Msg("action applied")
		}
	}
}

// writeLoop forwards room traffic to the socket. When the room is evicted
// under the connection it follows the chat to its next room.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, chatID uuid.UUID, sub *core.Subscription, logger *zerolog.Logger) error {
	defer func() { sub.Close() }()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				if h.chat.Rooms().Closed() {
					return nil
				}
				sub = h.chat.Rooms().GetOrCreate(chatID).Subscribe()
				logger.Debug().Msg("room evicted, resubscribed")
				continue
			}
			data, err := proto.EncodeMessage(msg)
			if err != nil {
				logger.Error().Err(err).Msg("encode ws message")
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Error().Err(err).Str("message_id", msg.ID.String()).Msg("write ws message")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeError renders an ErrorResponse outside of a gin context.
func writeError(w stdhttp.ResponseWriter, status int, msg string) {
	body := render.JSON{Data: ErrorResponse{Error: msg}}
	body.WriteContentType(w)
	w.WriteHeader(status)
	_ = body.Render(w)
}
