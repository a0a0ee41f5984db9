// Package avatars stores uploaded avatar images in an S3-compatible bucket
// and exposes public URLs for them. When no storage backend is configured
// the store stays disabled and uploads fail with an external-service error,
// leaving the rest of the application untouched.
package avatars

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/valey/valey-go/apperror"
	"github.com/valey/valey-go/config"
)

// cacheControlMaxAge mirrors the CDN lifetime sent with every object.
const cacheControlMaxAge = "3600"

// Store wraps the S3 client used for avatar objects.
type Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewStore builds an S3-backed store from configuration. A nil store is
// returned without error when storage is not configured; callers treat
// that as the disabled mode.
func NewStore(ctx context.Context, cfg *config.StorageConfig) (*Store, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, apperror.NewExternalServiceError("failed to load storage config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Enabled reports whether a storage backend is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Upload writes the object under key, replacing any existing object with
// the same key.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if !s.Enabled() {
		return apperror.NewExternalServiceError("avatar storage is not configured", nil)
	}

	cacheControl := cacheControlMaxAge
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       &s.bucket,
		Key:          &key,
		Body:         body,
		ContentType:  &contentType,
		CacheControl: &cacheControl,
	})
	if err != nil {
		return apperror.NewExternalServiceError("failed to upload avatar", err)
	}
	return nil
}

// PublicURL returns the address clients use to render the object.
func (s *Store) PublicURL(key string) string {
	if !s.Enabled() || s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + "/" + key
}

// ObjectKey derives the storage key for a user's avatar. The millisecond
// timestamp makes every upload a distinct object so stale CDN copies are
// never served after a change.
func ObjectKey(userID, ext string, now time.Time) string {
	return fmt.Sprintf("%s_avatar_%d.%s", userID, now.UnixMilli(), strings.TrimPrefix(ext, "."))
}
