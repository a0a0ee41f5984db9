package profileform

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/avatars"
	"github.com/valey/valey-go/profiles"
)

// maxAvatarBytes is the upload size ceiling.
const maxAvatarBytes = 5 * 1024 * 1024

// allowedMIMETypes and allowedExtensions are both checked; the declared
// type, the filename, and the file's leading bytes all have to agree
// before anything reaches storage.
var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// magicPrefixes maps the two-byte signatures of the accepted formats:
// JPEG, PNG, RIFF (WebP container), and GIF.
var magicPrefixes = [][]byte{
	{0xFF, 0xD8},
	{0x89, 0x50},
	{0x52, 0x49},
	{0x47, 0x49},
}

// Uploader is the slice of the avatar store the pipeline needs.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
}

// Upserter writes the avatar URL through an insert-or-update so a brand
// new account can set an avatar before its profile row exists.
type Upserter interface {
	Upsert(ctx context.Context, userID string, patch profiles.Patch) (*profiles.Profile, error)
}

// AvatarUpload is one candidate avatar file.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// AvatarPipeline validates, stores, and records avatar uploads.
type AvatarPipeline struct {
	sess     SessionState
	uploader Uploader
	upserter Upserter
	now      func() time.Time
}

// NewAvatarPipeline wires the pipeline. The clock is injectable for tests.
func NewAvatarPipeline(sess SessionState, uploader Uploader, upserter Upserter) *AvatarPipeline {
	return &AvatarPipeline{sess: sess, uploader: uploader, upserter: upserter, now: time.Now}
}

// Process runs the full upload: validation, storage write, optimistic
// cache update, durable row write, and a final refresh so the cache ends
// on whatever actually landed. It returns the new public URL.
func (p *AvatarPipeline) Process(ctx context.Context, upload AvatarUpload) (string, error) {
	sess := p.sess.Session()
	if sess == nil {
		return "", apperror.NewAuthError("sign in to change your avatar", nil)
	}
	if !p.uploader.Enabled() {
		return "", apperror.NewExternalServiceError("avatar storage is not configured", nil)
	}

	ext, err := validateUpload(upload)
	if err != nil {
		return "", err
	}

	key := avatars.ObjectKey(sess.User.ID, ext, p.now())
	if err := p.uploader.Upload(ctx, key, upload.ContentType, bytes.NewReader(upload.Data)); err != nil {
		return "", err
	}

	url := p.uploader.PublicURL(key)
	if url == "" {
		// A store can be reachable for writes yet have no public base URL
		// configured. An empty URL must never land in the profile row.
		return "", apperror.NewExternalServiceError("no public URL for avatar", nil)
	}
	patch := profiles.Patch{AvatarURL: profiles.StringPtr(url)}

	p.sess.ApplyProfilePatch(patch)

	if _, err := p.upserter.Upsert(ctx, sess.User.ID, patch); err != nil {
		// The optimistic URL did not land; pull the truth back in.
		_ = p.sess.RefreshProfile(ctx)
		return "", err
	}

	_ = p.sess.RefreshProfile(ctx)
	return url, nil
}

// validateUpload applies the size, MIME, extension, and signature checks
// and returns the normalized extension.
func validateUpload(upload AvatarUpload) (string, error) {
	if upload.Size > maxAvatarBytes || int64(len(upload.Data)) > maxAvatarBytes {
		return "", apperror.NewValidationError("avatar must be 5MB or smaller", nil)
	}
	if !allowedMIMETypes[strings.ToLower(upload.ContentType)] {
		return "", apperror.NewValidationError("avatar must be a JPEG, PNG, WebP, or GIF image", nil)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(upload.Filename), "."))
	if !allowedExtensions[ext] {
		return "", apperror.NewValidationError("avatar file extension is not allowed", nil)
	}

	if !hasImageSignature(upload.Data) {
		return "", apperror.NewValidationError("file content does not match an accepted image format", nil)
	}
	return ext, nil
}

// hasImageSignature checks the file's leading bytes against the accepted
// format signatures. The declared MIME type is client-supplied and cheap
// to forge; this is not.
func hasImageSignature(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	for _, prefix := range magicPrefixes {
		if bytes.HasPrefix(data, prefix) {
			return true
		}
	}
	return false
}
