// Package auth implements the account side of the platform: credential
// sign-up and sign-in, session issuance and retrieval, sign-out, and the
// publication of auth-state-change events that the session hub consumes.
package auth

import "time"

// User is the identity record behind a session. It is immutable from the
// application's perspective and replaced wholesale when the session changes.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email,omitempty"`
	HashedPassword string    `json:"-"` // never exposed in responses
	CreatedAt      time.Time `json:"created_at"`
}

// Session is the server-issued proof of an authenticated identity. It wraps
// the User it was issued for and is destroyed on sign-out or expiry.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// SignUpData carries the optional profile fields collected at sign-up.
type SignUpData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
