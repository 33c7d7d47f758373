package proto

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vovakirdan/chatrelay/internal/core"
)

// ChatMessage is the JSON form of a relayed message.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ChatID         uuid.UUID `json:"chat_id"`
	Text           string    `json:"text"`
	FromSpecialist bool      `json:"is_from_specialist"`
	Read           bool      `json:"is_read"`
	SentAt         Timestamp `json:"sent_at"`
	CreatedAt      Timestamp `json:"created_at"`
}

// chatMessageIn lists every spelling clients and the old service used.
type chatMessageIn struct {
	ID                   uuid.UUID  `json:"id"`
	ChatID               *uuid.UUID `json:"chat_id"`
	ChatIDAlias          *uuid.UUID `json:"chatId"`
	Text                 string     `json:"text"`
	FromSpecialist       *bool      `json:"is_from_specialist"`
	FromSpecialistAlias  *bool      `json:"fromSpecialist"`
	Read                 *bool      `json:"is_read"`
	ReadAlias            *bool      `json:"isRead"`
	ReadShort            *bool      `json:"read"`
	SentAt               *Timestamp `json:"sent_at"`
	SentAtAlias          *Timestamp `json:"sentAt"`
	CreatedAt            *Timestamp `json:"created_at"`
	CreatedAtAlias       *Timestamp `json:"createdAt"`
	CreatedAtMisspelling *Timestamp `json:"createAt"`
}

// UnmarshalJSON accepts both the snake_case and the camelCase field names.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var in chatMessageIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*m = ChatMessage{ID: in.ID, Text: in.Text}
	if id := firstOf(in.ChatID, in.ChatIDAlias); id != nil {
		m.ChatID = *id
	}
	if v := firstOf(in.FromSpecialist, in.FromSpecialistAlias); v != nil {
		m.FromSpecialist = *v
	}
	if v := firstOf(in.Read, in.ReadAlias, in.ReadShort); v != nil {
		m.Read = *v
	}
	if ts := firstOf(in.SentAt, in.SentAtAlias); ts != nil {
		m.SentAt = *ts
	}
	if ts := firstOf(in.CreatedAt, in.CreatedAtAlias, in.CreatedAtMisspelling); ts != nil {
		m.CreatedAt = *ts
	}
	return nil
}

func firstOf[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// FromCore converts a domain message to its wire form.
func FromCore(msg core.ChatMessage) ChatMessage {
	return ChatMessage{
		ID:             msg.ID,
		ChatID:         msg.ChatID,
		Text:           msg.Text,
		FromSpecialist: msg.FromSpecialist,
		Read:           msg.Read,
		SentAt:         Timestamp{Time: msg.SentAt},
		CreatedAt:      Timestamp{Time: msg.CreatedAt},
	}
}

// Core converts the wire form back to a domain message.
func (m ChatMessage) Core() core.ChatMessage {
	return core.ChatMessage{
		ID:             m.ID,
		ChatID:         m.ChatID,
		Text:           m.Text,
		FromSpecialist: m.FromSpecialist,
		Read:           m.Read,
		SentAt:         m.SentAt.Time,
		CreatedAt:      m.CreatedAt.Time,
	}
}

// EncodeMessage renders msg as one outbound frame.
func EncodeMessage(msg core.ChatMessage) ([]byte, error) {
	data, err := json.Marshal(FromCore(msg))
	if err != nil {
		return nil, fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	return data, nil
}

// DecodeMessage parses a message frame, accepting every known field spelling.
func DecodeMessage(data []byte) (core.ChatMessage, error) {
	var m ChatMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return core.ChatMessage{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return m.Core(), nil
}
