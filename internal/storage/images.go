package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
)

// MaxImageSize is the upload limit for content images.
const MaxImageSize = 5 << 20

const presignTTL = 15 * time.Minute

var (
	ErrImageType     = apperr.New(apperr.Validation, "unsupported image type")
	ErrImageTooLarge = apperr.New(apperr.Validation, "image exceeds 5 MiB")
	ErrImageEmpty    = apperr.New(apperr.Validation, "image is empty")
	ErrImageNotFound = apperr.New(apperr.NotFound, "image not found")
	ErrImageKey      = apperr.New(apperr.Validation, "invalid image key")
)

var imageExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ObjectStore is the subset of an object store the image service needs.
// *MinIOStorage implements it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Image describes a stored upload. Path is what content items store in
// their image field.
type Image struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// Images stores content images under the images/ prefix.
type Images struct {
	store      ObjectStore
	publicBase string
}

// NewImages returns an image service. publicBase is the route prefix that
// serves images, e.g. "/api/public/images".
func NewImages(store ObjectStore, publicBase string) *Images {
	return &Images{store: store, publicBase: strings.TrimRight(publicBase, "/")}
}

// Upload stores an image with a generated key.
func (im *Images) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (*Image, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExt[ct]
	if !ok {
		return nil, ErrImageType
	}
	if size <= 0 {
		return nil, ErrImageEmpty
	}
	if size > MaxImageSize {
		return nil, ErrImageTooLarge
	}
	key := "images/" + time.Now().UTC().Format("2006/01/") + uuid.NewString() + ext
	if err := im.store.Put(ctx, key, r, size, ct); err != nil {
		return nil, err
	}
	return &Image{Key: key, Path: im.publicBase + "/" + key}, nil
}

// URL returns a short-lived download URL for key.
func (im *Images) URL(ctx context.Context, key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(key, "images/") || path.Clean(key) != key {
		return "", ErrImageKey
	}
	ok, err := im.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrImageNotFound
	}
	return im.store.PresignedURL(ctx, key, presignTTL)
}
