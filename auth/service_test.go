package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/authevents"
	"github.com/valey/valey-go/config"
)

// memUserStore keeps credential rows in a map, behaving like the pgx store
// down to the error values the service switches on.
type memUserStore struct {
	users   map[string]*User // email -> user
	created int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*User{}}
}

func (m *memUserStore) CreateUser(_ context.Context, user *User) error {
	if _, ok := m.users[user.Email]; ok {
		return &pgconn.PgError{Code: pgUniqueViolation}
	}
	m.created++
	user.ID = fmt.Sprintf("user-%d", m.created)
	user.CreatedAt = time.Now()
	copied := *user
	m.users[user.Email] = &copied
	return nil
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

type seedCall struct {
	userID    string
	firstName string
	lastName  string
}

type recordingSeeder struct {
	calls []seedCall
}

func (r *recordingSeeder) SeedProfile(_ context.Context, userID, firstName, lastName string) error {
	r.calls = append(r.calls, seedCall{userID: userID, firstName: firstName, lastName: lastName})
	return nil
}

func testService() *Service {
	return NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 168 * time.Hour,
	}, authevents.NewBus(), nil)
}

func TestSignUpSeedsExactlyOneProfile(t *testing.T) {
	bus := authevents.NewBus()
	seeder := &recordingSeeder{}
	svc := NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}, bus, seeder)
	svc.users = newMemUserStore()

	id, events := bus.Subscribe()
	defer bus.Unsubscribe(id)

	session, err := svc.SignUp(context.Background(), "Jane@Example.com", "pw", SignUpData{
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", session.User.Email, "emails are stored lowercase")
	assert.NotEmpty(t, session.AccessToken)

	require.Len(t, seeder.calls, 1)
	assert.Equal(t, session.User.ID, seeder.calls[0].userID)
	assert.Equal(t, "Jane", seeder.calls[0].firstName)
	assert.Equal(t, "Doe", seeder.calls[0].lastName)

	event := <-events
	assert.Equal(t, authevents.SignedIn, event.Kind)
	assert.Equal(t, session.User.ID, event.UserID)
}

func TestSignUpDuplicateEmailIsConflict(t *testing.T) {
	seeder := &recordingSeeder{}
	svc := NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}, authevents.NewBus(), seeder)
	svc.users = newMemUserStore()

	_, err := svc.SignUp(context.Background(), "jane@example.com", "pw", SignUpData{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), "jane@example.com", "pw2", SignUpData{FirstName: "Janet", LastName: "Doe"})
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
	assert.Len(t, seeder.calls, 1, "the rejected sign-up must not seed another profile row")
}

func TestSignUpThenSignInWithPassword(t *testing.T) {
	svc := NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}, authevents.NewBus(), nil)
	svc.users = newMemUserStore()

	_, err := svc.SignUp(context.Background(), "jane@example.com", "correct-horse", SignUpData{})
	require.NoError(t, err)

	session, err := svc.SignInWithPassword(context.Background(), "Jane@Example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", session.User.Email)

	_, err = svc.SignInWithPassword(context.Background(), "jane@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService()

	token, expiresAt, err := svc.generateToken("user-1", "u@example.com", "sess-1", tokenTypeAccess, 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.validateToken(token, tokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "valey", claims.Issuer)
}

func TestValidateTokenRejectsWrongType(t *testing.T) {
	svc := testService()

	token, _, err := svc.generateToken("user-1", "u@example.com", "sess-1", tokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	_, err = svc.validateToken(token, tokenTypeAccess)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := testService()
	other := NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "different-secret",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}, authevents.NewBus(), nil)

	token, _, err := other.generateToken("user-1", "", "sess-1", tokenTypeAccess, time.Minute)
	require.NoError(t, err)

	_, err = svc.validateToken(token, tokenTypeAccess)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := testService()

	token, _, err := svc.generateToken("user-1", "", "sess-1", tokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = svc.validateToken(token, tokenTypeAccess)
	assert.Error(t, err)
}

func TestParseClaimsAcceptsExpiredToken(t *testing.T) {
	svc := testService()

	token, _, err := svc.generateToken("user-1", "u@example.com", "sess-1", tokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	claims, err := svc.parseClaims(token, tokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestSignOutWithInvalidTokenStillPublishesSignedOut(t *testing.T) {
	bus := authevents.NewBus()
	svc := NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}, bus, nil)

	id, events := bus.Subscribe()
	defer bus.Unsubscribe(id)

	err := svc.SignOut(context.Background(), "not-a-token")
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, authevents.SignedOut, event.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a SignedOut event")
	}
}

func TestRefreshTokenPublishesTokenRefreshed(t *testing.T) {
	bus := authevents.NewBus()
	svc := NewService(nil, nil, config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Hour,
	}, bus, nil)

	refreshToken, _, err := svc.generateToken("user-1", "u@example.com", "sess-1", tokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	id, events := bus.Subscribe()
	defer bus.Unsubscribe(id)

	session, err := svc.RefreshToken(context.Background(), refreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.User.ID)
	assert.Equal(t, refreshToken, session.RefreshToken)
	assert.NotEmpty(t, session.AccessToken)

	event := <-events
	assert.Equal(t, authevents.TokenRefreshed, event.Kind)
	assert.Equal(t, "user-1", event.UserID)
}

func TestJWTMiddleware(t *testing.T) {
	svc := testService()
	cfg := &config.AuthConfig{JWTSecret: "test-secret"}

	protected := JWTMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		email, _ := GetUserEmailFromContext(r.Context())
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, "u@example.com", email)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("accepts a valid access token", func(t *testing.T) {
		token, _, err := svc.generateToken("user-1", "u@example.com", "sess-1", tokenTypeAccess, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/rest/profiles/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rest/profiles/me", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a refresh token on the access surface", func(t *testing.T) {
		token, _, err := svc.generateToken("user-1", "u@example.com", "sess-1", tokenTypeRefresh, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/rest/profiles/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rest/profiles/me", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
