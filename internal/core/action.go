package core

import (
	"time"

	"github.com/google/uuid"
)

// Action is a decoded client intent. The only implementations are
// CreateAction and ReadAction.
type Action interface {
	isAction()
}

// CreateAction asks to author a new message in the connection's room.
type CreateAction struct {
	Text           string
	FromSpecialist bool
	// SentAt is the client-side send time; nil means receipt time.
	SentAt *time.Time
}

// ReadAction asks to mark an existing message as read.
type ReadAction struct {
	MessageID uuid.UUID
}

func (CreateAction) isAction() {}
func (ReadAction) isAction()   {}
