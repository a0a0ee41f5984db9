package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/config"
)

// ContextKey is a type used for context keys to avoid collisions.
type ContextKey string

const (
	// UserIDKey is the key under which the authenticated user's id is stored
	// in the request context.
	UserIDKey ContextKey = "userID"
	// UserEmailKey is the key for the authenticated user's email.
	UserEmailKey ContextKey = "userEmail"
)

// JWTMiddleware verifies the Bearer token from the Authorization header and
// adds the user id and email to the request context. It protects the REST
// surface of the profile store; dashboard pages use the session hub's route
// guard instead.
func JWTMiddleware(cfg *config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, apperror.NewAuthError("Authorization header is missing", nil))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteError(w, r, apperror.NewAuthError("Authorization header format must be Bearer {token}", nil))
				return
			}

			tokenString := parts[1]
			claims := &CustomClaims{}

			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				WriteError(w, r, apperror.NewAuthError(fmt.Sprintf("Invalid token: %v", err), err))
				return
			}
			if !token.Valid {
				WriteError(w, r, apperror.NewAuthError("Invalid token", nil))
				return
			}
			if claims.TokenType != tokenTypeAccess {
				WriteError(w, r, apperror.NewAuthError("token is not an access token", nil))
				return
			}
			if claims.UserID == "" {
				WriteError(w, r, apperror.NewAuthError("Invalid token: user_id claim is missing", nil))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext retrieves the user id set by JWTMiddleware.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetUserEmailFromContext retrieves the user email set by JWTMiddleware.
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}
