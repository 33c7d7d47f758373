//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Message represents a persisted chat message.
type Message struct {
	ID             uuid.UUID
	ChatID         uuid.UUID
	Text           string
	FromSpecialist bool
	Read           bool
	SentAt         time.Time
	CreatedAt      time.Time
}

// NewMessage carries the fields a caller supplies when creating a message.
// ID, CreatedAt and the read flag are assigned by the store.
type NewMessage struct {
	ChatID         uuid.UUID
	Text           string
	FromSpecialist bool
	// SentAt defaults to the creation time when nil.
	SentAt *time.Time
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a new unread message and returns the stored row.
	CreateMessage(ctx context.Context, msg NewMessage) (*Message, error)

	// GetMessage retrieves a message by ID.
	// Returns ErrNotFound if there is no such message.
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)

	// MarkRead sets the read flag and returns the updated message.
	// Marking an already read message is a no-op that returns it unchanged.
	MarkRead(ctx context.Context, id uuid.UUID) (*Message, error)

	// ListMessages retrieves messages of a chat, newest first.
	// If before is provided, only messages created strictly earlier are returned.
	ListMessages(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
