package profileform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/auth"
	"github.com/valey/valey-go/profiles"
)

// fakeSession is an in-memory stand-in for the session hub.
type fakeSession struct {
	session   *auth.Session
	profile   *profiles.Profile
	updateErr error

	updates   []profiles.Patch
	applied   []profiles.Patch
	refreshes int
}

func (f *fakeSession) Session() *auth.Session     { return f.session }
func (f *fakeSession) Profile() *profiles.Profile { return f.profile }

func (f *fakeSession) RefreshProfile(context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeSession) ApplyProfilePatch(patch profiles.Patch) {
	f.applied = append(f.applied, patch)
}

func (f *fakeSession) UpdateProfile(_ context.Context, patch profiles.Patch) (*profiles.Profile, error) {
	f.updates = append(f.updates, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	updated := *f.profile
	if patch.FirstName != nil {
		updated.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		updated.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		updated.Phone = *patch.Phone
	}
	if patch.Company != nil {
		updated.Company = *patch.Company
	}
	if patch.AvatarURL != nil {
		updated.AvatarURL = *patch.AvatarURL
	}
	f.profile = &updated
	return &updated, nil
}

func signedInFake() *fakeSession {
	return &fakeSession{
		session: &auth.Session{
			AccessToken: "tok",
			User:        auth.User{ID: "user-1", Email: "jane@example.com"},
		},
		profile: &profiles.Profile{
			ID:        "user-1",
			FirstName: "Jane",
			LastName:  "Doe",
			Phone:     "5551234567",
			Company:   "Valey",
		},
	}
}

func TestControllerSeedsDraftFromProfile(t *testing.T) {
	form := NewController(signedInFake())

	data := form.Data()
	assert.Equal(t, "Jane", data.FirstName)
	assert.Equal(t, "(555) 123-4567", data.Phone, "stored digits render formatted")
	assert.Equal(t, "jane@example.com", data.Email)
}

func TestSetFieldClearsFieldError(t *testing.T) {
	sess := signedInFake()
	form := NewController(sess)
	form.SetField(FieldFirstName, "")

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	require.Contains(t, form.Errors(), FieldFirstName)
	assert.Empty(t, sess.updates, "nothing persists while the form is invalid")

	form.SetField(FieldFirstName, "Janet")
	assert.NotContains(t, form.Errors(), FieldFirstName)
}

func TestSetFieldFormatsPhoneProgressively(t *testing.T) {
	form := NewController(signedInFake())

	form.SetField(FieldPhone, "555")
	assert.Equal(t, "(555", form.Data().Phone)

	form.SetField(FieldPhone, "5551234567")
	assert.Equal(t, "(555) 123-4567", form.Data().Phone)
}

func TestSubmitPersistsSanitizedDraft(t *testing.T) {
	sess := signedInFake()
	form := NewController(sess)
	form.SetField(FieldFirstName, "  Janet ")
	form.SetField(FieldCompany, "Valey Inc.")

	message, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Profile updated successfully!", message)

	require.Len(t, sess.updates, 1)
	patch := sess.updates[0]
	assert.Equal(t, "Janet", *patch.FirstName)
	assert.Equal(t, "5551234567", *patch.Phone, "phone is stored unformatted")
	assert.Equal(t, "Valey Inc.", *patch.Company)
	assert.Nil(t, patch.AvatarURL, "submit never touches the avatar")
}

func TestSubmitNeverSendsEmail(t *testing.T) {
	sess := signedInFake()
	form := NewController(sess)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	// The patch type has no email field at all; assert the draft email
	// stayed what the session said, untouched by the submit.
	assert.Equal(t, "jane@example.com", form.Data().Email)
}

func TestSubmitRequiresSession(t *testing.T) {
	form := NewController(&fakeSession{})

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
}

func TestSubmitSurfacesStoreFailure(t *testing.T) {
	sess := signedInFake()
	sess.updateErr = apperror.NewDatabaseError("boom", nil)
	form := NewController(sess)

	_, err := form.Submit(context.Background())
	assert.Error(t, err)
}
