package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	base, err := url.Parse("https://cdn.example.org/portal/")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.org/portal/associations/a1/logo.png", publicURL(base, "associations/a1/logo.png"))
	assert.Equal(t, "https://cdn.example.org/portal/associations/a1/logo.png", publicURL(base, "/associations/a1/logo.png"))
	assert.Equal(t, "https://cdn.example.org/portal/", publicURL(base, ""))
}

func TestLogoKey(t *testing.T) {
	ext, ok := LogoExtension("IMAGE/PNG")
	require.True(t, ok)

	first, second := LogoKey("a1", ext), LogoKey("a1", ext)

	assert.True(t, strings.HasPrefix(first, "associations/a1/logo-"))
	assert.True(t, strings.HasSuffix(first, ".png"))
	assert.NotEqual(t, first, second)

	_, ok = LogoExtension("application/pdf")
	assert.False(t, ok)
}

func TestNewCloudflareR2Uploader_RequiresAllFields(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "acc"})
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, ok := KeyFromPublicURL(Disabled{}, "https://cdn.example.org/a.png")
	assert.False(t, ok)
}
