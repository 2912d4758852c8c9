package appmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Target
	}{
		{"app store with storefront", "https://apps.apple.com/us/app/idle-miner/id1116645064", Target{StoreApple, "1116645064", "us"}},
		{"app store without storefront", "https://apps.apple.com/app/id389801252", Target{StoreApple, "389801252", ""}},
		{"itunes host", "https://itunes.apple.com/RU/app/vk/id564177498?mt=8", Target{StoreApple, "564177498", "ru"}},
		{"google play", "https://play.google.com/store/apps/details?id=com.vkontakte.android&hl=ru", Target{StoreGoogle, "com.vkontakte.android", ""}},
		{"google play without scheme", "play.google.com/store/apps/details?hl=en&id=com.king.candycrushsaga", Target{StoreGoogle, "com.king.candycrushsaga", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURLUnsupported(t *testing.T) {
	for _, raw := range []string{
		"",
		"https://example.com/app/id123",
		"https://play.google.com/store/apps/details",
		"https://play.google.com/store/search?q=games",
		"https://play.google.com/store/apps/details?id=bad%20id",
	} {
		_, err := ParseURL(raw)
		assert.ErrorIs(t, err, ErrUnsupportedURL, raw)
	}
}

func TestCacheKeyIgnoresStorefront(t *testing.T) {
	a, err := ParseURL("https://apps.apple.com/us/app/x/id42")
	require.NoError(t, err)
	b, err := ParseURL("https://apps.apple.com/de/app/x/id42")
	require.NoError(t, err)
	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.Equal(t, "appmeta:app_store:42", a.CacheKey())
}
