package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Room is the in-memory broadcast unit of one chat. Every subscriber owns a
// bounded queue; a publish is delivered to all of them or to none.
type Room struct {
	ChatID    uuid.UUID
	CreatedAt time.Time

	// unix nanoseconds, strictly increasing
	lastActivity atomic.Int64
	bufferSize   int

	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	closed      bool
}

// NewRoom constructs an open room with no subscribers.
func NewRoom(chatID uuid.UUID, bufferSize int, now time.Time) *Room {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	r := &Room{
		ChatID:      chatID,
		CreatedAt:   now,
		bufferSize:  bufferSize,
		subscribers: make(map[*Subscription]struct{}),
	}
	r.lastActivity.Store(now.UnixNano())
	return r
}

// LastActivity returns the time of the most recent registry lookup.
func (r *Room) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}

// touch records activity at now. The stored value always moves forward, even
// when the clock does not.
func (r *Room) touch(now time.Time) time.Time {
	for {
		prev := r.lastActivity.Load()
		next := now.UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if r.lastActivity.CompareAndSwap(prev, next) {
			return time.Unix(0, next)
		}
	}
}

// Publish delivers msg to every current subscriber.
// It returns ErrRoomClosed after eviction and ErrBufferFull when any
// subscriber queue is full; in both cases nobody receives msg.
func (r *Room) Publish(msg ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	for sub := range r.subscribers {
		if len(sub.ch) == cap(sub.ch) {
			return ErrBufferFull
		}
	}
	// Sends cannot block: only publishers write and they hold r.mu.
	for sub := range r.subscribers {
		sub.ch <- msg
	}
	return nil
}

// Subscribe attaches a new subscriber. It only observes messages published
// after this call. Subscribing to a closed room yields a closed subscription.
func (r *Room) Subscribe() *Subscription {
	sub := &Subscription{
		room: r,
		ch:   make(chan ChatMessage, r.bufferSize),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		close(sub.ch)
		return sub
	}
	r.subscribers[sub] = struct{}{}
	return sub
}

// SubscriberCount returns the number of live subscribers.
func (r *Room) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}

// Closed reports whether the room was evicted.
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[sub]; !ok {
		return
	}
	delete(r.subscribers, sub)
	close(sub.ch)
}

// close terminates the room; subscribers drain what is queued and then see
// their channel closed.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for sub := range r.subscribers {
		close(sub.ch)
	}
	r.subscribers = nil
}

// Subscription is one consumer of a room's broadcast.
type Subscription struct {
	room *Room
	ch   chan ChatMessage
}

// C returns the channel of published messages. It is closed when the
// subscription or its room is closed.
func (s *Subscription) C() <-chan ChatMessage {
	return s.ch
}

// Room returns the room this subscription is attached to.
func (s *Subscription) Room() *Room {
	return s.room
}

// Close detaches the subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	s.room.unsubscribe(s)
}
