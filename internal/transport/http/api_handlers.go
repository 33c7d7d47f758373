package http

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	chat *core.ChatService
	log  *zerolog.Logger
	now  func() time.Time
}

var registerBindingOnce sync.Once

// registerBindingValidations teaches gin's validator the wire tags.
func registerBindingValidations(logger *zerolog.Logger) {
	registerBindingOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := proto.RegisterValidations(v); err != nil {
			logger.Error().Err(err).Msg("register binding validations")
		}
	})
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(chat *core.ChatService, logger *zerolog.Logger) *APIHandlers {
	registerBindingValidations(logger)
	return &APIHandlers{
		chat: chat,
		log:  logger,
		now:  time.Now,
	}
}

// BroadcastRequest is a message persisted by another system that must reach
// the chat's live connections.
type BroadcastRequest struct {
	MessageID      string           `json:"messageId" binding:"required,anyuuid"`
	ChatID         string           `json:"chatId" binding:"required,anyuuid"`
	Text           string           `json:"text" binding:"required,max=4096"`
	FromSpecialist bool             `json:"fromSpecialist"`
	IsRead         bool             `json:"isRead"`
	SentAt         *proto.Timestamp `json:"sentAt"`
}

// StatusResponse acknowledges a side-channel request.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomResponse describes a live room.
type RoomResponse struct {
	ChatID       string `json:"chat_id"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	Subscribers  int    `json:"subscribers"`
}

// HistoryResponse is one page of persisted messages, newest first.
type HistoryResponse struct {
	Messages []proto.ChatMessage `json:"messages"`
}

// BroadcastMessage injects an already persisted message into its room.
// POST /api/broadcast/message
func (h *APIHandlers) BroadcastMessage(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid broadcast request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	now := h.now().UTC()
	msg := core.ChatMessage{
		ID:             uuid.MustParse(req.MessageID),
		ChatID:         uuid.MustParse(req.ChatID),
		Text:           req.Text,
		FromSpecialist: req.FromSpecialist,
		Read:           req.IsRead,
		SentAt:         now,
		CreatedAt:      now,
	}
	if req.SentAt != nil && !req.SentAt.IsZero() {
		msg.SentAt = req.SentAt.Time
	}

	if err := h.chat.Inject(msg.ChatID, msg); err != nil {
		if errors.Is(err, core.ErrPublish) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "failed to broadcast message"})
			return
		}
		h.log.Error().Err(err).Str("chat_id", req.ChatID).Msg("broadcast failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().
		Str("chat_id", req.ChatID).
		Str("message_id", req.MessageID).
		Msg("message broadcast from side channel")
	c.JSON(http.StatusOK, StatusResponse{Status: "broadcast"})
}

// History lists persisted messages of a chat.
// GET /api/chats/:chatId/messages?limit=&before=
func (h *APIHandlers) History(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(limit, maxHistoryLimit)
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		ts, err := proto.ParseTimestamp(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before timestamp"})
			return
		}
		before = &ts
	}

	messages, err := h.chat.History(c.Request.Context(), chatID, limit, before)
	if err != nil {
		h.log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to load history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := HistoryResponse{Messages: make([]proto.ChatMessage, 0, len(messages))}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, proto.FromCore(m))
	}
	c.JSON(http.StatusOK, resp)
}

// ListRooms reports the live rooms, most recently active first.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	infos := h.chat.Rooms().Snapshot()

	rooms := make([]RoomResponse, 0, len(infos))
	for _, info := range infos {
		rooms = append(rooms, RoomResponse{
			ChatID:       info.ChatID.String(),
			CreatedAt:    info.CreatedAt.UTC().Format(time.RFC3339Nano),
			LastActivity: info.LastActivity.UTC().Format(time.RFC3339Nano),
			Subscribers:  info.Subscribers,
		})
	}
	c.JSON(http.StatusOK, rooms)
}
