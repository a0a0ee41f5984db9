package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/authevents"
)

// validate is shared across handlers; validator instances are safe for
// concurrent use.
var validate = validator.New()

// Handlers wraps the account Service with HTTP handlers.
type Handlers struct {
	service *Service
	bus     *authevents.Bus
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, bus *authevents.Bus) *Handlers {
	return &Handlers{service: service, bus: bus}
}

// HandleRegister godoc
// @Summary User Registration
// @Description Creates a credential account, seeds the profile row, and returns a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param registerBody body auth.RegisterRequest true "Registration details"
// @Success 201 {object} auth.TokenResponse "Account created, session issued"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 409 {object} apperror.ErrorResponse "Email already exists"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /auth/register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := validate.Struct(req); err != nil {
			WriteError(w, r, apperror.NewValidationError(validationMessage(err), err))
			return
		}

		session, err := h.service.SignUp(r.Context(), req.Email, req.Password, SignUpData{
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, tokenResponse(session))
	}
}

// HandleLogin godoc
// @Summary User Login
// @Description Signs in with email and password and returns access and refresh tokens.
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "Login credentials"
// @Success 200 {object} auth.TokenResponse "Login successful"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /auth/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := validate.Struct(req); err != nil {
			WriteError(w, r, apperror.NewValidationError(validationMessage(err), err))
			return
		}

		session, err := h.service.SignInWithPassword(r.Context(), req.Email, req.Password)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse(session))
	}
}

// HandleRefreshToken godoc
// @Summary Refresh Access Token
// @Description Provides a new access token using a valid refresh token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param refreshBody body auth.RefreshTokenRequest true "Refresh token details"
// @Success 200 {object} auth.TokenResponse "Tokens refreshed"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or expired refresh token"
// @Router /auth/refresh [post]
func (h *Handlers) HandleRefreshToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()
		if req.RefreshToken == "" {
			WriteError(w, r, apperror.NewBadRequestError("refresh_token is required", nil))
			return
		}

		session, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse(session))
	}
}

// HandleLogout godoc
// @Summary Sign Out
// @Description Invalidates the caller's session. Accepts the token from the Authorization header or the body.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 204 "Session invalidated"
// @Router /auth/logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			var req LogoutRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				token = req.AccessToken
			}
		}
		defer r.Body.Close()

		// SignOut never fails from the caller's perspective.
		_ = h.service.SignOut(r.Context(), token)
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetSession godoc
// @Summary Get Session
// @Description Restores the session denoted by the Bearer token.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.Session "Current session"
// @Failure 401 {object} apperror.ErrorResponse "No valid session"
// @Router /auth/session [get]
func (h *Handlers) HandleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.service.GetSession(r.Context(), bearerToken(r))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// HandleEvents streams auth-state-change events over Server-Sent Events.
// Each connected client gets its own bus subscription, torn down when the
// client disconnects.
func (h *Handlers) HandleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, r, apperror.NewInternalError("streaming not supported", nil))
			return
		}

		id, events := h.bus.Subscribe()
		defer h.bus.Unsubscribe(id)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload)
				flusher.Flush()
			}
		}
	}
}

// tokenResponse maps a Session onto the OAuth2-style token payload.
func tokenResponse(session *Session) TokenResponse {
	return TokenResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(session.ExpiresAt).Seconds()),
	}
}

// bearerToken extracts the token from an Authorization header, or "".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// validationMessage flattens a validator error into a user-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if ve, ok := err.(validator.ValidationErrors); ok {
		verrs = ve
	}
	if len(verrs) == 0 {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(fields, "; ")
}

// writeJSON serializes data to JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError writes a standardized error response using the apperror system.
// Unrecognized errors are wrapped as internal errors so nothing leaks raw.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred: "+err.Error(), err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
