package core

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is the domain model for a message relayed through a room.
type ChatMessage struct {
	ID             uuid.UUID
	ChatID         uuid.UUID
	Text           string
	FromSpecialist bool
	Read           bool
	SentAt         time.Time
	CreatedAt      time.Time
}
