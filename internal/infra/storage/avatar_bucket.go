// Package storage keeps user-uploaded files in a gocloud blob bucket.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"renthouse/config"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/lifecycle"
	"renthouse/internal/domain/service"
	"renthouse/internal/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
)

const avatarCacheControl = "public, max-age=31536000, immutable"

// avatarExtensions maps accepted MIME types to object suffixes.
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type avatarBucket struct {
	bucket        *blob.Bucket
	publicBaseURL string
	newName       func() string
}

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewAvatarStorage opens the configured bucket and closes it on shutdown.
func NewAvatarStorage(params Params) (service.AvatarStorage, error) {
	cfg := params.Config.AvatarStorage
	if cfg == nil || cfg.BucketURL == "" {
		return nil, errors.New("avatar storage bucket URL is missing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	bucket, err := blob.OpenBucket(ctx, cfg.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open avatar bucket %s", cfg.BucketURL)
	}
	params.Logger.Info("Avatar storage ready", slog.String("bucket", cfg.BucketURL))

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return bucket.Close()
		},
	})

	return NewBucketAvatarStorage(bucket, cfg.PublicBaseURL), nil
}

// NewBucketAvatarStorage stores avatars in an already opened bucket.
func NewBucketAvatarStorage(bucket *blob.Bucket, publicBaseURL string) service.AvatarStorage {
	return &avatarBucket{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newName:       uuid.NewString,
	}
}

// Put sniffs the image type from its content; the client's declared type is ignored.
func (s *avatarBucket) Put(ctx context.Context, accountID int64, data []byte) (string, error) {
	contentType := mimetype.Detect(data).String()
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return "", errors.Wrapf(domainerrors.ErrUnsupportedAvatarType, "detected %s", contentType)
	}

	key := fmt.Sprintf("avatars/%d/%s%s", accountID, s.newName(), ext)
	err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType:  contentType,
		CacheControl: avatarCacheControl,
	})
	if err != nil {
		return "", errors.Wrap(errors.Join(domainerrors.ErrAvatarStoreFailed, err), "failed to write avatar")
	}

	if s.publicBaseURL == "" {
		return key, nil
	}

	return s.publicBaseURL + "/" + key, nil
}
