// Package authevents implements the auth-state-change channel: a small event
// bus that the account service publishes to whenever a session is created,
// refreshed, or destroyed. The session hub holds exactly one subscription for
// the lifetime of the application; additional subscribers (such as the SSE
// endpoint) can attach and detach freely.
//
// Delivery per subscriber preserves publish order. Publishing never blocks:
// a subscriber that stops draining its channel loses events rather than
// stalling the account service.
package authevents

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened to the authentication state.
type Kind string

const (
	// InitialSession is emitted once when a stored session is restored (or
	// found absent) at startup.
	InitialSession Kind = "INITIAL_SESSION"
	// SignedIn is emitted on successful sign-in or sign-up.
	SignedIn Kind = "SIGNED_IN"
	// SignedOut is emitted on sign-out and on session expiry.
	SignedOut Kind = "SIGNED_OUT"
	// TokenRefreshed is emitted when an access token is silently renewed for
	// an already-known user. Consumers must not refetch the profile on it.
	TokenRefreshed Kind = "TOKEN_REFRESHED"
)

// Event is one auth-state change. For SignedOut the session fields are empty.
type Event struct {
	Kind        Kind      `json:"kind"`
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// subscriber holds the delivery channel for one attached consumer.
type subscriber struct {
	events chan Event
}

// Bus fans auth events out to its subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a new consumer and returns its id plus a receive-only
// event channel. The channel is buffered so short bursts do not drop.
func (b *Bus) Subscribe() (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	sub := &subscriber{
		events: make(chan Event, 32),
	}
	b.subscribers[id] = sub
	return id, sub.events
}

// Unsubscribe removes a consumer and closes its channel, unblocking any
// pending receive.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if ok {
		close(sub.events)
		delete(b.subscribers, id)
	}
}

// Publish delivers the event to every subscriber. The send is non-blocking;
// a full channel means the subscriber has fallen behind and the event is
// dropped for it (logged, not fatal).
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			log.Printf("authevents: dropping %s event for slow subscriber %s", event.Kind, id)
		}
	}
}

// SubscriberCount reports how many consumers are currently attached.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
