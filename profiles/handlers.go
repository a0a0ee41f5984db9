package profiles

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
)

var validate = validator.New()

// Handlers exposes the profile store over REST. All routes sit behind the
// JWT middleware, so the owning user always comes from the token.
type Handlers struct {
	store *Store
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// HandleGetMe godoc
// @Summary Get Own Profile
// @Description Returns the caller's profile row joined with the account email.
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} profiles.ProfileResponse "Profile"
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized"
// @Failure 404 {object} apperror.ErrorResponse "Profile not found"
// @Router /rest/profiles/me [get]
func (h *Handlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("user not found in context", nil))
			return
		}

		profile, err := h.store.Select(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		email, _ := auth.GetUserEmailFromContext(r.Context())
		writeJSON(w, http.StatusOK, ProfileResponse{Profile: *profile, Email: email})
	}
}

// HandleUpdateMe godoc
// @Summary Update Own Profile
// @Description Applies a partial update to the caller's profile. Absent fields are untouched.
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param updateBody body profiles.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} profiles.ProfileResponse "Updated profile"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 401 {object} apperror.ErrorResponse "Unauthorized"
// @Failure 404 {object} apperror.ErrorResponse "Profile not found"
// @Router /rest/profiles/me [patch]
func (h *Handlers) HandleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("user not found in context", nil))
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := validate.Struct(req); err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid profile fields", err))
			return
		}

		profile, err := h.store.Update(r.Context(), userID, req.Patch())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		email, _ := auth.GetUserEmailFromContext(r.Context())
		writeJSON(w, http.StatusOK, ProfileResponse{Profile: *profile, Email: email})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}
