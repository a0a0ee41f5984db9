package profileform

import (
	"context"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/profiles"
)

// SessionState is the slice of the session hub the form depends on.
type SessionState interface {
	Session() *auth.Session
	Profile() *profiles.Profile
	UpdateProfile(ctx context.Context, patch profiles.Patch) (*profiles.Profile, error)
	RefreshProfile(ctx context.Context) error
	ApplyProfilePatch(patch profiles.Patch)
}

// FormData is the editable draft plus the read-only fields shown next to
// it. Email is display-only; it belongs to the account and is never part
// of a profile submission.
type FormData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Controller drives one profile editing session: it keeps the draft, the
// per-field errors, and performs the submit. One controller per request.
type Controller struct {
	sess   SessionState
	data   FormData
	errors map[string]string
}

// NewController seeds the draft from the cached profile and session.
func NewController(sess SessionState) *Controller {
	c := &Controller{sess: sess, errors: make(map[string]string)}

	if p := sess.Profile(); p != nil {
		c.data.FirstName = p.FirstName
		c.data.LastName = p.LastName
		c.data.Phone = FormatPhoneNumber(p.Phone)
		c.data.Company = p.Company
		c.data.AvatarURL = p.AvatarURL
	}
	if s := sess.Session(); s != nil {
		c.data.Email = s.User.Email
	}
	return c
}

// Data returns the current draft.
func (c *Controller) Data() FormData {
	return c.data
}

// Errors returns a copy of the current per-field violations.
func (c *Controller) Errors() map[string]string {
	out := make(map[string]string, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// SetField writes one draft field and clears any stale error on it. Text
// fields are sanitized as they change; the phone field is reformatted so
// the draft always carries the display form.
func (c *Controller) SetField(field, value string) {
	switch field {
	case FieldFirstName:
		c.data.FirstName = SanitizeInput(value)
	case FieldLastName:
		c.data.LastName = SanitizeInput(value)
	case FieldPhone:
		c.data.Phone = FormatPhoneNumber(value)
	case FieldCompany:
		c.data.Company = SanitizeInput(value)
	default:
		return
	}
	delete(c.errors, field)
}

// Submit validates the whole draft and, if clean, persists it as a
// partial update of the existing row. The phone is stored unformatted.
// It returns the success message to show the user.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	if c.sess.Session() == nil {
		return "", apperror.NewAuthError("sign in to edit your profile", nil)
	}

	c.errors = ValidateForm(c.data)
	if len(c.errors) > 0 {
		return "", apperror.NewValidationError("please fix the highlighted fields", nil)
	}

	patch := profiles.Patch{
		FirstName: profiles.StringPtr(SanitizeInput(c.data.FirstName)),
		LastName:  profiles.StringPtr(SanitizeInput(c.data.LastName)),
		Phone:     profiles.StringPtr(UnformatPhoneNumber(c.data.Phone)),
		Company:   profiles.StringPtr(SanitizeInput(c.data.Company)),
	}

	updated, err := c.sess.UpdateProfile(ctx, patch)
	if err != nil {
		return "", err
	}

	c.data.FirstName = updated.FirstName
	c.data.LastName = updated.LastName
	c.data.Phone = FormatPhoneNumber(updated.Phone)
	c.data.Company = updated.Company
	c.data.AvatarURL = updated.AvatarURL

	return "Profile updated successfully!", nil
}
