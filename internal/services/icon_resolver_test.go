package services

import (
	"os"
	"path/filepath"
	"testing"

	"ecomission/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIconResolverCoversKnownCategories(t *testing.T) {
	r := DefaultIconResolver()

	for _, c := range models.KnownCategories {
		url, ok := r.ResolveIcon(c)
		assert.True(t, ok, c)
		assert.Contains(t, url, "/icons/")
	}

	_, ok := r.ResolveIcon("BICYCLE")
	assert.False(t, ok)

	banner, ok := r.ResolveBanner(models.MissionKindEvent)
	assert.True(t, ok)
	assert.Contains(t, banner, "/banners/")
}

func TestLoadIconResolverOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
icons:
  TUMBLER: https://cdn.example.com/tumbler.png
banners:
  EVENT: https://cdn.example.com/event.png
`), 0o600))

	r, err := LoadIconResolver(path)
	require.NoError(t, err)

	url, _ := r.ResolveIcon(models.CategoryTumbler)
	assert.Equal(t, "https://cdn.example.com/tumbler.png", url)

	url, ok := r.ResolveIcon(models.CategoryRecycling)
	assert.True(t, ok, "unlisted categories keep the built-in icon")
	assert.Contains(t, url, "d02cd5a5")

	banner, _ := r.ResolveBanner(models.MissionKindEvent)
	assert.Equal(t, "https://cdn.example.com/event.png", banner)
}

func TestLoadIconResolverRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.yaml")
	require.NoError(t, os.WriteFile(path, []byte("icons:\n  BICYCLE: https://x\n"), 0o600))

	_, err := LoadIconResolver(path)
	assert.ErrorContains(t, err, "BICYCLE")
}

func TestLoadIconResolverEmptyPath(t *testing.T) {
	r, err := LoadIconResolver("")
	require.NoError(t, err)
	_, ok := r.ResolveIcon(models.CategoryEtc)
	assert.True(t, ok)
}
