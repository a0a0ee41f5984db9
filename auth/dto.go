// Data transfer objects for the auth HTTP surface. Struct tags drive both
// JSON mapping and validator/v10 request validation.
package auth

// RegisterRequest represents the registration request payload.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email" example:"user@example.com"`
	Password  string `json:"password" validate:"required,min=8" example:"strongpassword123"`
	FirstName string `json:"first_name" validate:"max=50" example:"Jane"`
	LastName  string `json:"last_name" validate:"max=50" example:"Doe"`
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"strongpassword123"`
}

// TokenResponse is returned to the client upon successful login or refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token,omitempty" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"3600"`
}

// RefreshTokenRequest represents the token refresh request payload.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest carries the access token to invalidate when it is not sent
// in the Authorization header.
type LogoutRequest struct {
	AccessToken string `json:"access_token"`
}
