// Package storage uploads report photos to an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrStorageDisabled is returned when no bucket is configured.
var ErrStorageDisabled = errors.New("image storage is not configured")

// ImageStore persists report images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
}

// NewImageKey returns a fresh object key under reports/ with an extension
// matching contentType.
func NewImageKey(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return "reports/" + uuid.NewString() + extensions[ct]
}

// Disabled is the ImageStore used when no bucket is configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return ErrStorageDisabled
}
