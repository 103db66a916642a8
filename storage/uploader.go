package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrStorageDisabled is returned by Disabled when no bucket is configured.
var ErrStorageDisabled = errors.New("file storage is not configured")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// Disabled is the uploader used when R2 is not configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader) (*UploadResult, error) {
	return nil, ErrStorageDisabled
}

func (Disabled) Delete(context.Context, string) error { return ErrStorageDisabled }

func (Disabled) GetPublicURL(string) string { return "" }

// logoExtensions maps accepted logo content types to file extensions.
var logoExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// LogoExtension returns the file extension for an accepted logo content type.
func LogoExtension(contentType string) (string, bool) {
	ext, ok := logoExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// LogoKey builds a fresh object key for an association logo. Every upload
// gets a new key so cached copies of the previous logo are never served.
func LogoKey(associationID, ext string) string {
	return path.Join("associations", associationID, fmt.Sprintf("logo-%s%s", uuid.NewString(), ext))
}

// KeyFromPublicURL recovers the object key of a URL built by GetPublicURL.
func KeyFromPublicURL(u FileUploader, publicURL string) (string, bool) {
	base := u.GetPublicURL("")
	if base == "" || !strings.HasPrefix(publicURL, base) {
		return "", false
	}
	key := strings.TrimPrefix(strings.TrimPrefix(publicURL, base), "/")
	return key, key != ""
}
