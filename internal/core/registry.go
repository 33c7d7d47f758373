package core

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

const (
	// DefaultBufferSize is the per-subscriber queue capacity of a room.
	DefaultBufferSize = 10
	// DefaultKeepAlive is how long a room survives without lookups.
	DefaultKeepAlive = 10 * time.Minute
	// DefaultTick is the interval between idle checks of a room.
	DefaultTick = time.Minute
)

// Options tunes room lifetime and buffering.
type Options struct {
	KeepAlive  time.Duration
	Tick       time.Duration
	BufferSize int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		KeepAlive:  DefaultKeepAlive,
		Tick:       DefaultTick,
		BufferSize: DefaultBufferSize,
	}
}

// RoomInfo is a point-in-time view of a live room.
type RoomInfo struct {
	ChatID       uuid.UUID
	CreatedAt    time.Time
	LastActivity time.Time
	Subscribers  int
}

// Registry maps chat identifiers to rooms. Rooms are created on first lookup
// and evicted by their reaper once idle for longer than KeepAlive.
type Registry struct {
	rooms  *xsync.MapOf[uuid.UUID, *Room]
	opts   Options
	now    func() time.Time
	log    *zerolog.Logger
	closed atomic.Bool
}

// NewRegistry creates an empty registry. Zero option fields fall back to defaults.
func NewRegistry(opts Options, logger *zerolog.Logger) *Registry {
	defaults := DefaultOptions()
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaults.KeepAlive
	}
	if opts.Tick <= 0 {
		opts.Tick = defaults.Tick
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Registry{
		rooms: xsync.NewMapOf[uuid.UUID, *Room](),
		opts:  opts,
		now:   time.Now,
		log:   logger,
	}
}

// GetOrCreate returns the room for chatID, creating it if needed, and marks
// it as active. Concurrent callers for the same chatID get the same room.
// After Close it returns a detached room that is already closed.
func (r *Registry) GetOrCreate(chatID uuid.UUID) *Room {
	if r.closed.Load() {
		room := NewRoom(chatID, r.opts.BufferSize, r.now())
		room.close()
		return room
	}

	created := false
	room, _ := r.rooms.Compute(chatID, func(current *Room, loaded bool) (*Room, bool) {
		now := r.now()
		if loaded {
			current.touch(now)
			return current, false
		}
		created = true
		return NewRoom(chatID, r.opts.BufferSize, now), false
	})

	if !created {
		return room
	}
	// Close may have ranged past chatID before this insert landed.
	if r.closed.Load() {
		r.discard(chatID, room)
		return room
	}
	r.log.Debug().Str("chat_id", chatID.String()).Msg("room created")
	r.armReaper(chatID, room)
	return room
}

// discard removes room if it is still the one registered for chatID and
// closes it.
func (r *Registry) discard(chatID uuid.UUID, room *Room) {
	r.rooms.Compute(chatID, func(current *Room, loaded bool) (*Room, bool) {
		if loaded && current != room {
			return current, false
		}
		return nil, true
	})
	room.close()
}

// Lookup returns the live room for chatID without refreshing its activity.
func (r *Registry) Lookup(chatID uuid.UUID) (*Room, bool) {
	return r.rooms.Load(chatID)
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	return r.rooms.Size()
}

// Snapshot lists live rooms, most recently active first.
func (r *Registry) Snapshot() []RoomInfo {
	infos := make([]RoomInfo, 0, r.rooms.Size())
	r.rooms.Range(func(chatID uuid.UUID, room *Room) bool {
		infos = append(infos, RoomInfo{
			ChatID:       chatID,
			CreatedAt:    room.CreatedAt,
			LastActivity: room.LastActivity(),
			Subscribers:  room.SubscriberCount(),
		})
		return true
	})
	slices.SortFunc(infos, func(a, b RoomInfo) int {
		return b.LastActivity.Compare(a.LastActivity)
	})
	return infos
}

// Closed reports whether Close was called.
func (r *Registry) Closed() bool {
	return r.closed.Load()
}

// Close evicts and closes every room and stops all reapers.
func (r *Registry) Close() {
	r.closed.Store(true)
	r.rooms.Range(func(chatID uuid.UUID, _ *Room) bool {
		if room, ok := r.rooms.LoadAndDelete(chatID); ok {
			room.close()
		}
		return true
	})
}
