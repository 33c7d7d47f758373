package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPublish is the parent of every broadcast failure.
	ErrPublish = errors.New("publish failed")
	// ErrBufferFull is returned when a subscriber queue of the room has no room left.
	ErrBufferFull = fmt.Errorf("%w: buffer full", ErrPublish)
	// ErrRoomClosed is returned when publishing to an evicted room.
	ErrRoomClosed = fmt.Errorf("%w: room closed", ErrPublish)

	// ErrStore wraps persistence failures surfaced by the chat service.
	ErrStore = errors.New("store failure")
	// ErrUnknownAction is returned for an Action value the service cannot dispatch.
	ErrUnknownAction = errors.New("unknown action")
)
