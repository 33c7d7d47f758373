package core

import (
	"time"

	"github.com/google/uuid"
)

type sweepResult int

const (
	// sweepGone: the room is no longer registered; the chain ends.
	sweepGone sweepResult = iota
	// sweepAlive: the room is still within its keep-alive; check again later.
	sweepAlive
	// sweepEvicted: the room was idle past its deadline and was removed.
	sweepEvicted
)

// armReaper schedules the next idle check of room. Each check either ends
// the chain or arms exactly one successor.
func (r *Registry) armReaper(chatID uuid.UUID, room *Room) {
	time.AfterFunc(r.opts.Tick, func() {
		r.reap(chatID, room)
	})
}

func (r *Registry) reap(chatID uuid.UUID, room *Room) {
	if r.closed.Load() {
		return
	}

	switch r.sweep(chatID, room) {
	case sweepEvicted:
		room.close()
		r.log.Info().
			Str("chat_id", chatID.String()).
			Time("last_activity", room.LastActivity()).
			Msg("idle room evicted")
	case sweepAlive:
		r.armReaper(chatID, room)
	case sweepGone:
		r.log.Debug().Str("chat_id", chatID.String()).Msg("reaper stopped, room gone")
	}
}

// sweep removes room from the registry if it is idle past its deadline.
// The decision and the removal happen under the key's lock, so a concurrent
// GetOrCreate either refreshes the room before the check or finds it gone.
func (r *Registry) sweep(chatID uuid.UUID, room *Room) sweepResult {
	result := sweepGone
	r.rooms.Compute(chatID, func(current *Room, loaded bool) (*Room, bool) {
		if !loaded {
			return nil, true
		}
		if current != room {
			return current, false
		}

		deadline := current.LastActivity().Add(r.opts.KeepAlive)
		if !r.now().Before(deadline) {
			result = sweepEvicted
			return nil, true
		}
		result = sweepAlive
		return current, false
	})
	return result
}
