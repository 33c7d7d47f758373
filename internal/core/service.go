package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/store"
)

// ChatService applies client actions to the message store and broadcasts
// their results to the chat's room.
type ChatService struct {
	rooms *Registry
	store store.MessageStore
	log   *zerolog.Logger
}

// NewChatService wires a service to its registry and store.
func NewChatService(rooms *Registry, st store.MessageStore, logger *zerolog.Logger) *ChatService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ChatService{
		rooms: rooms,
		store: st,
		log:   logger,
	}
}

// Rooms returns the registry the service publishes through.
func (s *ChatService) Rooms() *Registry {
	return s.rooms
}

// Handle dispatches action for chatID. It returns the broadcast message, or
// nil when the action produced nothing.
func (s *ChatService) Handle(ctx context.Context, chatID uuid.UUID, action Action) (*ChatMessage, error) {
	switch a := action.(type) {
	case CreateAction:
		return s.Create(ctx, chatID, a)
	case ReadAction:
		return s.Read(ctx, chatID, a)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

// Create persists a new message and publishes it to the room.
// A store failure is returned and nothing is published. A publish failure is
// returned together with the persisted message.
func (s *ChatService) Create(ctx context.Context, chatID uuid.UUID, a CreateAction) (*ChatMessage, error) {
	// The write and its broadcast outlive the connection that asked for them.
	ctx = context.WithoutCancel(ctx)

	stored, err := s.store.CreateMessage(ctx, store.NewMessage{
		ChatID:         chatID,
		Text:           a.Text,
		FromSpecialist: a.FromSpecialist,
		SentAt:         a.SentAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create message: %w", ErrStore, err)
	}

	msg := fromStore(stored)
	s.log.Info().
		Str("chat_id", chatID.String()).
		Str("message_id", msg.ID.String()).
		Bool("from_specialist", msg.FromSpecialist).
		Msg("message saved")

	if err := s.publish(chatID, msg); err != nil {
		return &msg, err
	}
	return &msg, nil
}

// Read marks a message of this chat as read and publishes the update.
// Unknown messages, messages of another chat and already read messages
// produce (nil, nil).
func (s *ChatService) Read(ctx context.Context, chatID uuid.UUID, a ReadAction) (*ChatMessage, error) {
	ctx = context.WithoutCancel(ctx)

	stored, err := s.store.GetMessage(ctx, a.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Debug().Str("message_id", a.MessageID.String()).Msg("message not found")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get message: %w", ErrStore, err)
	}
	if stored.ChatID != chatID || stored.Read {
		s.log.Debug().
			Str("chat_id", chatID.String()).
			Str("message_id", a.MessageID.String()).
			Msg("message belongs to another chat or is already read")
		return nil, nil
	}

	updated, err := s.store.MarkRead(ctx, a.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: mark read: %w", ErrStore, err)
	}

	msg := fromStore(updated)
	if err := s.publish(chatID, msg); err != nil {
		return &msg, err
	}
	return &msg, nil
}

// Inject publishes an already persisted message authored elsewhere.
func (s *ChatService) Inject(chatID uuid.UUID, msg ChatMessage) error {
	return s.publish(chatID, msg)
}

// History returns persisted messages of a chat, newest first.
func (s *ChatService) History(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]ChatMessage, error) {
	stored, err := s.store.ListMessages(ctx, chatID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %w", ErrStore, err)
	}

	messages := make([]ChatMessage, 0, len(stored))
	for _, m := range stored {
		messages = append(messages, fromStore(m))
	}
	return messages, nil
}

// publish resolves the current room and publishes msg. A room closed between
// lookup and publish is replaced once by a fresh lookup.
func (s *ChatService) publish(chatID uuid.UUID, msg ChatMessage) error {
	err := s.rooms.GetOrCreate(chatID).Publish(msg)
	if errors.Is(err, ErrRoomClosed) {
		err = s.rooms.GetOrCreate(chatID).Publish(msg)
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("chat_id", chatID.String()).
			Str("message_id", msg.ID.String()).
			Msg("failed to broadcast message")
		return fmt.Errorf("chat %s: %w", chatID, err)
	}

	s.log.Debug().
		Str("chat_id", chatID.String()).
		Str("message_id", msg.ID.String()).
		Msg("message broadcast")
	return nil
}

func fromStore(m *store.Message) ChatMessage {
	return ChatMessage{
		ID:             m.ID,
		ChatID:         m.ChatID,
		Text:           m.Text,
		FromSpecialist: m.FromSpecialist,
		Read:           m.Read,
		SentAt:         m.SentAt,
		CreatedAt:      m.CreatedAt,
	}
}
