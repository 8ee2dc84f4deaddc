package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "goodcompany/pkg/domain-errors"
)

func TestParsePlatform(t *testing.T) {
	t.Run("accepts the closed set case-insensitively", func(t *testing.T) {
		for _, raw := range []string{"instagram", "Facebook", "TIKTOK", "twitter", "linkedin", "snapchat"} {
			p, err := ParsePlatform(raw)
			require.NoError(t, err, raw)
			assert.True(t, p.IsValid())
		}
	})

	t.Run("rejects empty and unknown platforms", func(t *testing.T) {
		for _, raw := range []string{"", "myspace", "instagram "} {
			_, err := ParsePlatform(raw)
			require.Error(t, err, "%q", raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})
}

func TestValidateProfileURL(t *testing.T) {
	cases := []struct {
		platform Platform
		url      string
		ok       bool
	}{
		{PlatformInstagram, "https://www.instagram.com/someone", true},
		{PlatformInstagram, "http://INSTAGRAM.com/someone", true},
		{PlatformInstagram, "https://evil.com/instagram.com", false},
		{PlatformInstagram, "https://instagram.com.evil.com/x", false},
		{PlatformFacebook, "https://fb.com/someone", true},
		{PlatformTwitter, "https://x.com/someone", true},
		{PlatformTwitter, "https://www.x.com/someone", true},
		{PlatformSnapchat, "https://snapchat.com/add/someone", true},
		{PlatformLinkedIn, "https://tiktok.com/@someone", false},
		{PlatformTikTok, "", false},
		{PlatformTikTok, "not a url", false},
	}
	for _, tc := range cases {
		err := tc.platform.ValidateProfileURL(tc.url)
		if tc.ok {
			assert.NoError(t, err, "%s %s", tc.platform, tc.url)
		} else {
			require.Error(t, err, "%s %s", tc.platform, tc.url)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	}
}

func TestPlatformOrderIsStable(t *testing.T) {
	all := AllPlatforms()
	for i, p := range all {
		assert.Equal(t, i, p.Order())
	}
	assert.Equal(t, len(all), Platform("unknown").Order())
}
