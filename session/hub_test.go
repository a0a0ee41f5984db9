package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/authevents"
	"github.com/valey/valey-go/profiles"
)

type fakeAccounts struct {
	sessions map[string]*auth.Session // token -> session
	signOuts []string
}

func (f *fakeAccounts) SignUp(_ context.Context, email, _ string, _ auth.SignUpData) (*auth.Session, error) {
	return &auth.Session{AccessToken: "signup-token", User: auth.User{ID: "new-user", Email: email}}, nil
}

func (f *fakeAccounts) SignInWithPassword(_ context.Context, email, _ string) (*auth.Session, error) {
	return &auth.Session{AccessToken: "signin-token", User: auth.User{ID: "user-1", Email: email}}, nil
}

func (f *fakeAccounts) SignOut(_ context.Context, token string) error {
	f.signOuts = append(f.signOuts, token)
	return nil
}

func (f *fakeAccounts) GetSession(_ context.Context, token string) (*auth.Session, error) {
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return nil, apperror.NewAuthError("invalid session token", nil)
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*profiles.Profile
	selects  int
	selErr   error
	updErr   error
}

func (f *fakeProfileStore) Select(_ context.Context, userID string) (*profiles.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects++
	if f.selErr != nil {
		return nil, f.selErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.NewNotFoundError("profile not found", nil)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProfileStore) Update(_ context.Context, userID string, patch profiles.Patch) (*profiles.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updErr != nil {
		return nil, f.updErr
	}
	p := *f.profiles[userID]
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
	f.profiles[userID] = &p
	copied := p
	return &copied, nil
}

func (f *fakeProfileStore) selectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selects
}

type fakeNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (f *fakeNavigator) Navigate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, path)
}

func (f *fakeNavigator) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.routes) == 0 {
		return ""
	}
	return f.routes[len(f.routes)-1]
}

type memTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *memTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type hubFixture struct {
	hub      *Hub
	accounts *fakeAccounts
	store    *fakeProfileStore
	nav      *fakeNavigator
	tokens   *memTokenStore
	bus      *authevents.Bus
}

func newFixture() *hubFixture {
	accounts := &fakeAccounts{sessions: map[string]*auth.Session{}}
	store := &fakeProfileStore{profiles: map[string]*profiles.Profile{
		"user-1": {ID: "user-1", FirstName: "Jane", LastName: "Doe"},
	}}
	nav := &fakeNavigator{}
	tokens := &memTokenStore{}
	bus := authevents.NewBus()
	return &hubFixture{
		hub:      NewHub(accounts, store, bus, nav, tokens),
		accounts: accounts,
		store:    store,
		nav:      nav,
		tokens:   tokens,
		bus:      bus,
	}
}

func TestInitWithoutStoredTokenSettlesAnonymous(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	assert.Equal(t, StateUninitialized, f.hub.State())
	require.NoError(t, f.hub.Init(context.Background()))

	assert.Equal(t, StateAnonymous, f.hub.State())
	assert.Nil(t, f.hub.Session())
	assert.Nil(t, f.hub.Profile())
}

func TestInitRestoresStoredSessionAndFetchesProfile(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1", Email: "jane@example.com"},
	}

	require.NoError(t, f.hub.Init(context.Background()))

	assert.Equal(t, StateAuthenticated, f.hub.State())
	require.NotNil(t, f.hub.Profile())
	assert.Equal(t, "Jane", f.hub.Profile().FirstName)
}

func TestInitWithRejectedTokenClearsItAndSettlesAnonymous(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stale-token"
	require.NoError(t, f.hub.Init(context.Background()))

	assert.Equal(t, StateAnonymous, f.hub.State())
	stored, _ := f.tokens.Load()
	assert.Empty(t, stored, "a rejected token must not be retried on next start")
}

func TestInitSubscribesExactlyOnce(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	require.NoError(t, f.hub.Init(context.Background()))
	require.NoError(t, f.hub.Init(context.Background()))

	assert.Equal(t, 1, f.bus.SubscriberCount())
}

func TestSignedInEventAuthenticatesAndLoadsProfile(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))

	f.bus.Publish(authevents.Event{
		Kind:        authevents.SignedIn,
		UserID:      "user-1",
		Email:       "jane@example.com",
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	require.Eventually(t, func() bool {
		return f.hub.State() == StateAuthenticated && f.hub.Profile() != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "user-1", f.hub.Session().User.ID)
}

func TestTokenRefreshForKnownUserSkipsProfileRefetch(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))

	f.bus.Publish(authevents.Event{Kind: authevents.SignedIn, UserID: "user-1", AccessToken: "t1"})
	require.Eventually(t, func() bool {
		return f.hub.Profile() != nil
	}, 2*time.Second, 10*time.Millisecond)
	before := f.store.selectCount()

	f.bus.Publish(authevents.Event{Kind: authevents.TokenRefreshed, UserID: "user-1", AccessToken: "t2"})
	require.Eventually(t, func() bool {
		s := f.hub.Session()
		return s != nil && s.AccessToken == "t2"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, before, f.store.selectCount(), "a silent renewal must not refetch the profile")
}

func TestTokenRefreshForDifferentUserRefetches(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))
	f.store.mu.Lock()
	f.store.profiles["user-2"] = &profiles.Profile{ID: "user-2", FirstName: "Sam"}
	f.store.mu.Unlock()

	f.bus.Publish(authevents.Event{Kind: authevents.SignedIn, UserID: "user-1", AccessToken: "t1"})
	require.Eventually(t, func() bool { return f.hub.Profile() != nil }, 2*time.Second, 10*time.Millisecond)

	f.bus.Publish(authevents.Event{Kind: authevents.TokenRefreshed, UserID: "user-2", AccessToken: "t2"})
	require.Eventually(t, func() bool {
		p := f.hub.Profile()
		return p != nil && p.ID == "user-2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignedOutEventClearsState(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))

	f.bus.Publish(authevents.Event{Kind: authevents.SignedIn, UserID: "user-1", AccessToken: "t1"})
	require.Eventually(t, func() bool { return f.hub.State() == StateAuthenticated }, 2*time.Second, 10*time.Millisecond)

	f.bus.Publish(authevents.Event{Kind: authevents.SignedOut})
	require.Eventually(t, func() bool { return f.hub.State() == StateAnonymous }, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, f.hub.Session())
	assert.Nil(t, f.hub.Profile())
}

func TestSignOutClearsSynchronouslyAndNavigatesHome(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1"},
	}
	require.NoError(t, f.hub.Init(context.Background()))
	require.Equal(t, StateAuthenticated, f.hub.State())

	require.NoError(t, f.hub.SignOut(context.Background()))

	// No Eventually here on purpose: the clear must have happened by the
	// time SignOut returned.
	assert.Equal(t, StateAnonymous, f.hub.State())
	assert.Nil(t, f.hub.Session())
	assert.Nil(t, f.hub.Profile())
	assert.Equal(t, "/", f.nav.last())
	assert.Equal(t, []string{"stored-token"}, f.accounts.signOuts)

	stored, _ := f.tokens.Load()
	assert.Empty(t, stored)
}

func TestSignInPersistsToken(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))

	session, err := f.hub.SignIn(context.Background(), "jane@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "signin-token", session.AccessToken)

	stored, _ := f.tokens.Load()
	assert.Equal(t, "signin-token", stored)
}

func TestUpdateProfileIsOptimistic(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1"},
	}
	require.NoError(t, f.hub.Init(context.Background()))
	require.NotNil(t, f.hub.Profile())

	updated, err := f.hub.UpdateProfile(context.Background(), profiles.Patch{
		FirstName: profiles.StringPtr("Janet"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "Janet", f.hub.Profile().FirstName)
}

func TestUpdateProfileResyncsOnFailure(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1"},
	}
	require.NoError(t, f.hub.Init(context.Background()))
	require.NotNil(t, f.hub.Profile())

	f.store.updErr = apperror.NewDatabaseError("boom", nil)
	_, err := f.hub.UpdateProfile(context.Background(), profiles.Patch{
		FirstName: profiles.StringPtr("Janet"),
	})
	require.Error(t, err)

	// The optimistic write must not survive a failed persist.
	assert.Equal(t, "Jane", f.hub.Profile().FirstName)
}

func TestUpdateProfileWithoutSession(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))

	_, err := f.hub.UpdateProfile(context.Background(), profiles.Patch{})
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestRefreshProfileWithoutSessionIsNoOp(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()
	require.NoError(t, f.hub.Init(context.Background()))

	before := f.store.selectCount()
	require.NoError(t, f.hub.RefreshProfile(context.Background()))
	assert.Equal(t, before, f.store.selectCount())
}

func TestRapidRefreshProfileConvergesOnStoreRow(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1"},
	}
	require.NoError(t, f.hub.Init(context.Background()))
	require.NotNil(t, f.hub.Profile())

	f.store.mu.Lock()
	f.store.profiles["user-1"].FirstName = "Janet"
	f.store.mu.Unlock()
	before := f.store.selectCount()

	// Two overlapping refreshes, as when two handlers fire back to back.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.hub.RefreshProfile(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, before+2, f.store.selectCount())
	assert.Equal(t, "Janet", f.hub.Profile().FirstName, "cache ends on the backend row")
}

func TestRefreshProfileErrorLeavesCacheUntouched(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1"},
	}
	require.NoError(t, f.hub.Init(context.Background()))
	require.NotNil(t, f.hub.Profile())

	f.store.mu.Lock()
	f.store.selErr = apperror.NewDatabaseError("boom", nil)
	f.store.mu.Unlock()

	err := f.hub.RefreshProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Jane", f.hub.Profile().FirstName)
}

func TestApplyProfilePatchOnlyTouchesCache(t *testing.T) {
	f := newFixture()
	defer f.hub.Close()

	f.tokens.token = "stored-token"
	f.accounts.sessions["stored-token"] = &auth.Session{
		AccessToken: "stored-token",
		User:        auth.User{ID: "user-1"},
	}
	require.NoError(t, f.hub.Init(context.Background()))

	f.hub.ApplyProfilePatch(profiles.Patch{AvatarURL: profiles.StringPtr("https://cdn/x.png")})
	assert.Equal(t, "https://cdn/x.png", f.hub.Profile().AvatarURL)

	f.store.mu.Lock()
	stored := f.store.profiles["user-1"].AvatarURL
	f.store.mu.Unlock()
	assert.Empty(t, stored, "cache-only patch must not write the store")
}
