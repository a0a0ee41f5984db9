// Package session holds the application-wide authentication state: which
// user is signed in, their cached profile, and the lifecycle that keeps
// both in sync with auth-state-change events. Exactly one Hub exists per
// process and it subscribes to the event bus exactly once.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/authevents"
	"github.com/valey/valey-go/profiles"
)

// State is the hub's position in the session lifecycle.
type State int

const (
	// StateUninitialized means Init has not run yet. Guards treat this
	// like loading so no protected content leaks before restore finishes.
	StateUninitialized State = iota
	// StateLoading means session restore is in flight.
	StateLoading
	// StateAuthenticated means a verified session is active.
	StateAuthenticated
	// StateAnonymous means restore finished with no session.
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// Accounts is the slice of the auth service the hub drives.
type Accounts interface {
	SignUp(ctx context.Context, email, password string, data auth.SignUpData) (*auth.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetSession(ctx context.Context, accessToken string) (*auth.Session, error)
}

// ProfileStore is the slice of the profile store the hub reads and writes.
type ProfileStore interface {
	Select(ctx context.Context, userID string) (*profiles.Profile, error)
	Update(ctx context.Context, userID string, patch profiles.Patch) (*profiles.Profile, error)
}

// Navigator performs route changes on behalf of the hub. Sign-out always
// lands on the public landing page through this.
type Navigator interface {
	Navigate(path string)
}

// TokenStore persists the access token between process restarts, the way
// a browser keeps it in storage.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Hub is the single source of truth for session and profile state.
type Hub struct {
	accounts  Accounts
	store     ProfileStore
	bus       *authevents.Bus
	navigator Navigator
	tokens    TokenStore

	mu      sync.RWMutex
	state   State
	session *auth.Session
	profile *profiles.Profile

	initialized bool
	closed      bool
	subID       string
	done        chan struct{}
	wg          sync.WaitGroup
}

// ErrNoActiveSession is returned by operations that need a signed-in user.
var ErrNoActiveSession = errors.New("no active session")

// NewHub wires the hub's collaborators. Call Init to start it.
func NewHub(accounts Accounts, store ProfileStore, bus *authevents.Bus, navigator Navigator, tokens TokenStore) *Hub {
	return &Hub{
		accounts:  accounts,
		store:     store,
		bus:       bus,
		navigator: navigator,
		tokens:    tokens,
		state:     StateUninitialized,
		done:      make(chan struct{}),
	}
}

// Init restores any persisted session and starts consuming auth events.
// It subscribes to the bus exactly once; calling Init twice is a
// programming error and is refused.
func (h *Hub) Init(ctx context.Context) error {
	h.mu.Lock()
	if h.initialized {
		h.mu.Unlock()
		log.Println("session hub: Init called twice, ignoring")
		return nil
	}
	h.initialized = true
	h.state = StateLoading
	h.mu.Unlock()

	id, events := h.bus.Subscribe()
	h.subID = id

	h.wg.Add(1)
	go h.consume(events)

	h.restore(ctx)
	return nil
}

// restore resolves the persisted token into a session, or settles the hub
// into the anonymous state. Restore failures are anonymous, not fatal.
func (h *Hub) restore(ctx context.Context) {
	token, err := h.tokens.Load()
	if err != nil || token == "" {
		h.settleAnonymous()
		return
	}

	session, err := h.accounts.GetSession(ctx, token)
	if err != nil {
		log.Printf("session hub: stored session rejected: %v", err)
		_ = h.tokens.Clear()
		h.settleAnonymous()
		return
	}

	h.mu.Lock()
	h.session = session
	h.state = StateAuthenticated
	h.mu.Unlock()

	h.fetchProfile(ctx, session.User.ID)

	// Announce the restored session to other bus consumers (the SSE
	// stream, for one). The hub's own consumer sees it too and treats it
	// as a warm-cache no-op.
	h.bus.Publish(authevents.Event{
		Kind:        authevents.InitialSession,
		UserID:      session.User.ID,
		Email:       session.User.Email,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
	})
}

// consume applies auth-state-change events to the hub until Close.
func (h *Hub) consume(events <-chan authevents.Event) {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.apply(event)
		}
	}
}

// apply is the heart of the lifecycle: every sign-in, sign-out, and token
// refresh anywhere in the process flows through here.
func (h *Hub) apply(event authevents.Event) {
	switch event.Kind {
	case authevents.SignedOut:
		h.mu.Lock()
		h.session = nil
		h.profile = nil
		h.state = StateAnonymous
		h.mu.Unlock()

	case authevents.SignedIn, authevents.InitialSession, authevents.TokenRefreshed:
		h.mu.Lock()
		sameUser := h.session != nil && h.session.User.ID == event.UserID
		h.session = &auth.Session{
			AccessToken: event.AccessToken,
			ExpiresAt:   event.ExpiresAt,
			User:        auth.User{ID: event.UserID, Email: event.Email},
		}
		h.state = StateAuthenticated
		hasProfile := h.profile != nil
		h.mu.Unlock()

		// A token refresh or a restore announcement for the user we already
		// know is a no-op for the profile cache; refetching on every
		// refresh would hammer the database for data that cannot have
		// changed underneath us.
		if event.Kind != authevents.SignedIn && sameUser && hasProfile {
			return
		}
		h.fetchProfile(context.Background(), event.UserID)
	}
}

// fetchProfile loads the profile for userID and caches it, but only if
// that user is still the active one by the time the query returns.
func (h *Hub) fetchProfile(ctx context.Context, userID string) {
	profile, err := h.store.Select(ctx, userID)
	if err != nil {
		log.Printf("session hub: profile fetch for %s failed: %v", userID, err)
		return
	}

	h.mu.Lock()
	if h.session != nil && h.session.User.ID == userID {
		h.profile = profile
	}
	h.mu.Unlock()
}

// SignUp registers a new account. State flows in through the resulting
// auth event, not from the return value.
func (h *Hub) SignUp(ctx context.Context, email, password string, data auth.SignUpData) (*auth.Session, error) {
	session, err := h.accounts.SignUp(ctx, email, password, data)
	if err != nil {
		return nil, err
	}
	if err := h.tokens.Save(session.AccessToken); err != nil {
		log.Printf("session hub: failed to persist token: %v", err)
	}
	return session, nil
}

// SignIn authenticates with credentials and persists the token.
func (h *Hub) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	session, err := h.accounts.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := h.tokens.Save(session.AccessToken); err != nil {
		log.Printf("session hub: failed to persist token: %v", err)
	}
	return session, nil
}

// SignOut ends the session. The local state is cleared synchronously,
// before this returns, so no stale profile can render afterwards; the
// landing page navigation always happens, even if the backend call fails.
func (h *Hub) SignOut(ctx context.Context) error {
	h.mu.Lock()
	token := ""
	if h.session != nil {
		token = h.session.AccessToken
	}
	h.session = nil
	h.profile = nil
	h.state = StateAnonymous
	h.mu.Unlock()

	_ = h.tokens.Clear()

	var err error
	if token != "" {
		if err = h.accounts.SignOut(ctx, token); err != nil {
			log.Printf("session hub: backend sign-out failed: %v", err)
		}
	}

	h.navigator.Navigate("/")
	return err
}

// RefreshProfile refetches the profile from the store. Without an active
// user it is a no-op; on error the cached profile is left as it was.
func (h *Hub) RefreshProfile(ctx context.Context) error {
	h.mu.RLock()
	userID := ""
	if h.session != nil {
		userID = h.session.User.ID
	}
	h.mu.RUnlock()

	if userID == "" {
		return nil
	}

	profile, err := h.store.Select(ctx, userID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.session != nil && h.session.User.ID == userID {
		h.profile = profile
	}
	h.mu.Unlock()
	return nil
}

// UpdateProfile applies the patch optimistically: the cache reflects the
// change immediately, then the store write runs. On failure the cache is
// re-synced from the store so it never keeps a write that didn't land.
func (h *Hub) UpdateProfile(ctx context.Context, patch profiles.Patch) (*profiles.Profile, error) {
	h.mu.Lock()
	if h.session == nil {
		h.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	userID := h.session.User.ID
	if h.profile != nil {
		merged := *h.profile
		applyPatch(&merged, patch)
		h.profile = &merged
	}
	h.mu.Unlock()

	updated, err := h.store.Update(ctx, userID, patch)
	if err != nil {
		if refreshErr := h.RefreshProfile(ctx); refreshErr != nil {
			log.Printf("session hub: re-sync after failed update failed: %v", refreshErr)
		}
		return nil, err
	}

	h.mu.Lock()
	if h.session != nil && h.session.User.ID == userID {
		h.profile = updated
	}
	h.mu.Unlock()
	return updated, nil
}

// ApplyProfilePatch merges the patch into the cached profile without
// touching the store. The avatar pipeline uses it to render the new image
// immediately while the durable write runs through the profile store.
func (h *Hub) ApplyProfilePatch(patch profiles.Patch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.profile == nil {
		return
	}
	merged := *h.profile
	applyPatch(&merged, patch)
	h.profile = &merged
}

// State returns the current lifecycle state.
func (h *Hub) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Session returns a copy of the active session, or nil.
func (h *Hub) Session() *auth.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil {
		return nil
	}
	s := *h.session
	return &s
}

// Profile returns a copy of the cached profile, or nil.
func (h *Hub) Profile() *profiles.Profile {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.profile == nil {
		return nil
	}
	p := *h.profile
	return &p
}

// Close stops the event consumer and releases the bus subscription. It is
// safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.initialized || h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	close(h.done)
	h.bus.Unsubscribe(h.subID)
	h.wg.Wait()
}

func (h *Hub) settleAnonymous() {
	h.mu.Lock()
	h.state = StateAnonymous
	h.mu.Unlock()
}

// applyPatch merges the non-nil patch fields into the profile copy.
func applyPatch(p *profiles.Profile, patch profiles.Patch) {
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = *patch.LastName
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
}
