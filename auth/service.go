package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/authevents"
	"github.com/valey/valey-go/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
	pgUniqueViolation = "23505"

	// sessionKeyPrefix namespaces session records in Redis.
	sessionKeyPrefix = "session:"
	// SessionExpirySet is the sorted set indexing session records by expiry
	// time; the background sweeper reads it to publish expiry events.
	SessionExpirySet = "sessions:expiry"
)

// ProfileSeeder creates or completes a profile row for a user. The account
// service calls it right after account creation so a signed-up user is never
// left without a profile row.
type ProfileSeeder interface {
	SeedProfile(ctx context.Context, userID, firstName, lastName string) error
}

// userStore holds the credential rows. The pgx-backed implementation is the
// only one outside tests.
type userStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// Service provides account and session operations. The Redis client is
// optional: when nil, sessions rely on JWT expiry alone and cannot be revoked
// server-side.
type Service struct {
	users      userStore
	rdb        *redis.Client
	authConfig config.AuthConfig
	bus        *authevents.Bus
	seeder     ProfileSeeder
}

// NewService creates a new account Service. seeder may be nil in tests.
func NewService(db *pgxpool.Pool, rdb *redis.Client, authConfig config.AuthConfig, bus *authevents.Bus, seeder ProfileSeeder) *Service {
	return &Service{
		users:      &pgUserStore{db: db},
		rdb:        rdb,
		authConfig: authConfig,
		bus:        bus,
		seeder:     seeder,
	}
}

// CustomClaims is the JWT payload. SessionID ties access and refresh tokens
// to the same revocable session record.
type CustomClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid"`
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// SignUp creates a credential account, seeds the profile row with the
// supplied names, issues a session, and publishes a SignedIn event.
// A profile-seeding failure is logged but not surfaced: the account exists,
// so failing the whole sign-up would strand it.
func (s *Service) SignUp(ctx context.Context, email, password string, data SignUpData) (*Session, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		// Emails are stored lowercase so lookups are case-insensitive.
		Email:          strings.ToLower(email),
		HashedPassword: string(hashedPassword),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperror.NewConflictError("email already exists", nil)
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}

	if s.seeder != nil {
		if err := s.seeder.SeedProfile(ctx, user.ID, data.FirstName, data.LastName); err != nil {
			log.Printf("auth: failed to seed profile for user %s: %v", user.ID, err)
		}
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(authevents.SignedIn, session)
	return session, nil
}

// SignInWithPassword authenticates a user, issues a session, and publishes a
// SignedIn event.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Do not reveal whether the email or the password was wrong.
			return nil, apperror.NewAuthError("invalid credentials", nil)
		}
		log.Printf("auth: database error looking up %q: %v", email, err)
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apperror.NewAuthError("invalid credentials", nil)
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(authevents.SignedIn, session)
	return session, nil
}

// SignOut invalidates the session behind the given access token and publishes
// a SignedOut event. An already-invalid token is not an error: the caller's
// goal (being signed out) is met either way.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.parseClaims(accessToken, tokenTypeAccess)
	if err != nil {
		s.bus.Publish(authevents.Event{Kind: authevents.SignedOut})
		return nil
	}

	s.dropSessionRecord(ctx, claims.SessionID)
	s.bus.Publish(authevents.Event{
		Kind:   authevents.SignedOut,
		UserID: claims.UserID,
		Email:  claims.Email,
	})
	return nil
}

// GetSession validates an access token and restores the Session it denotes.
// When a Redis store is configured the session must also still have a live
// record there, so server-side revocation and expiry are honored.
func (s *Service) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, apperror.NewAuthError("no session", nil)
	}

	claims, err := s.validateToken(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, apperror.NewAuthError("invalid session token", err)
	}

	if s.rdb != nil {
		exists, err := s.rdb.Exists(ctx, sessionKeyPrefix+claims.SessionID).Result()
		if err != nil {
			// Redis being unreachable must not sign everyone out; fall back
			// to JWT validity alone.
			log.Printf("auth: session store unavailable: %v", err)
		} else if exists == 0 {
			return nil, apperror.NewAuthError("session expired or revoked", nil)
		}
	}

	return &Session{
		AccessToken: accessToken,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        User{ID: claims.UserID, Email: claims.Email},
	}, nil
}

// RefreshToken exchanges a valid refresh token for a new access token and
// publishes a TokenRefreshed event. Consumers keep their cached profile on
// this event; it is a silent renewal for an already-known user.
func (s *Service) RefreshToken(ctx context.Context, refreshTokenString string) (*Session, error) {
	claims, err := s.validateToken(refreshTokenString, tokenTypeRefresh)
	if err != nil {
		return nil, apperror.NewAuthError(fmt.Sprintf("invalid refresh token: %s", err.Error()), err)
	}

	accessToken, expiresAt, err := s.generateToken(claims.UserID, claims.Email, claims.SessionID, tokenTypeAccess, s.authConfig.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new access token: %w", err)
	}

	session := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		ExpiresAt:    expiresAt,
		User:         User{ID: claims.UserID, Email: claims.Email},
	}

	s.publish(authevents.TokenRefreshed, session)
	return session, nil
}

// createSession issues the token pair for a user and records the session in
// Redis with a TTL matching the refresh token lifetime.
func (s *Service) createSession(ctx context.Context, user *User) (*Session, error) {
	sessionID := uuid.New().String()

	accessToken, accessExpiresAt, err := s.generateToken(user.ID, user.Email, sessionID, tokenTypeAccess, s.authConfig.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := s.generateToken(user.ID, user.Email, sessionID, tokenTypeRefresh, s.authConfig.RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if s.rdb != nil {
		key := sessionKeyPrefix + sessionID
		if err := s.rdb.Set(ctx, key, user.ID, s.authConfig.RefreshTokenDuration).Err(); err != nil {
			log.Printf("auth: failed to store session record %s: %v", sessionID, err)
		}
		// Index by expiry so the sweeper can publish expiry notifications.
		member := fmt.Sprintf("%s|%s|%s", sessionID, user.ID, user.Email)
		if err := s.rdb.ZAdd(ctx, SessionExpirySet, redis.Z{
			Score:  float64(refreshExpiresAt.Unix()),
			Member: member,
		}).Err(); err != nil {
			log.Printf("auth: failed to index session expiry %s: %v", sessionID, err)
		}
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiresAt,
		User:         *user,
	}, nil
}

// dropSessionRecord removes the Redis record and expiry index entry for a
// session. Best effort: failures are logged only.
func (s *Service) dropSessionRecord(ctx context.Context, sessionID string) {
	if s.rdb == nil || sessionID == "" {
		return
	}
	if err := s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		log.Printf("auth: failed to delete session record %s: %v", sessionID, err)
	}
	// The index member embeds user id and email, so scan for the prefix.
	members, err := s.rdb.ZRangeByLex(ctx, SessionExpirySet, &redis.ZRangeBy{
		Min: "[" + sessionID + "|",
		Max: "[" + sessionID + "|\xff",
	}).Result()
	if err != nil {
		log.Printf("auth: failed to scan session expiry index: %v", err)
		return
	}
	for _, m := range members {
		if err := s.rdb.ZRem(ctx, SessionExpirySet, m).Err(); err != nil {
			log.Printf("auth: failed to prune session expiry index: %v", err)
		}
	}
}

// SessionRecordKey returns the Redis key for a session record. The
// background sweeper uses it to drop records it found through the expiry
// index.
func SessionRecordKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// publish emits an event describing the given session.
func (s *Service) publish(kind authevents.Kind, session *Session) {
	s.bus.Publish(authevents.Event{
		Kind:        kind,
		UserID:      session.User.ID,
		Email:       session.User.Email,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
	})
}

// generateToken creates a signed JWT with the given type and duration.
func (s *Service) generateToken(userID, email, sessionID, tokenType string, duration time.Duration) (string, time.Time, error) {
	expirationTime := time.Now().Add(duration)
	claims := &CustomClaims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "valey",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// validateToken parses a JWT and checks its signature, expiry, and type.
func (s *Service) validateToken(tokenString, expectedTokenType string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}
	if claims.TokenType != expectedTokenType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedTokenType, claims.TokenType)
	}
	return claims, nil
}

// parseClaims extracts claims without requiring the token to be unexpired.
// Used by SignOut, which must be able to act on a token that just lapsed.
func (s *Service) parseClaims(tokenString, expectedTokenType string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.TokenType != expectedTokenType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedTokenType, claims.TokenType)
	}
	return claims, nil
}

// --- Database helpers ---

type pgUserStore struct {
	db *pgxpool.Pool
}

func (p *pgUserStore) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (email, password)
	          VALUES ($1, $2)
	          RETURNING id, created_at`
	return p.db.QueryRow(ctx, query, user.Email, user.HashedPassword).Scan(&user.ID, &user.CreatedAt)
}

func (p *pgUserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	query := `SELECT id, email, password, created_at FROM users WHERE email = $1`
	err := p.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(&user.ID, &user.Email, &user.HashedPassword, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
