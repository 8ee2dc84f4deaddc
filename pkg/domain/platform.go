package domain

import (
	"net/url"
	"strings"

	dErrors "goodcompany/pkg/domain-errors"
)

// Platform is a domain value identifying a supported social media platform.
// Invariant: the value must be one of the supported platforms.
//
// Usage: construct via ParsePlatform at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Platform string

// Supported platforms. Registration order here is the display order for link
// reads, so renders stay stable regardless of vote counters.
const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformSnapchat  Platform = "snapchat"
)

// platformOrder fixes the registration order used for deterministic sorting.
var platformOrder = map[Platform]int{
	PlatformInstagram: 0,
	PlatformFacebook:  1,
	PlatformTikTok:    2,
	PlatformTwitter:   3,
	PlatformLinkedIn:  4,
	PlatformSnapchat:  5,
}

// platformHosts is the single source of truth for which hosts belong to which
// platform. Adding a platform is a data change here, not a code change in the
// registry. Hosts are stored lowercase; matching is exact after lowercasing.
var platformHosts = map[Platform][]string{
	PlatformInstagram: {"instagram.com", "www.instagram.com"},
	PlatformFacebook:  {"facebook.com", "www.facebook.com", "fb.com"},
	PlatformTikTok:    {"tiktok.com", "www.tiktok.com"},
	PlatformTwitter:   {"twitter.com", "www.twitter.com", "x.com", "www.x.com"},
	PlatformLinkedIn:  {"linkedin.com", "www.linkedin.com"},
	PlatformSnapchat:  {"snapchat.com", "www.snapchat.com"},
}

// ParsePlatform constructs a Platform from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParsePlatform(s string) (Platform, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "platform cannot be empty")
	}
	p := Platform(strings.ToLower(s))
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported platform: "+s)
	}
	return p, nil
}

// IsValid checks if the platform is one of the supported enum values.
func (p Platform) IsValid() bool {
	_, ok := platformOrder[p]
	return ok
}

// Order returns the platform's registration order. Unknown platforms sort last.
func (p Platform) Order() int {
	if o, ok := platformOrder[p]; ok {
		return o
	}
	return len(platformOrder)
}

// String returns the string representation of the platform.
func (p Platform) String() string {
	return string(p)
}

// ValidateProfileURL checks that rawURL parses and that its host belongs to
// the platform's allowed domain set. Matching is case-insensitive and
// scheme-agnostic: only the host decides.
//
// Errors: CodeValidation for unparseable URLs or hosts outside the allowlist.
func (p Platform) ValidateProfileURL(rawURL string) error {
	if rawURL == "" {
		return dErrors.New(dErrors.CodeValidation, "url cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return dErrors.New(dErrors.CodeValidation, "url is not a valid absolute URL")
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range platformHosts[p] {
		if host == allowed {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, "host "+host+" does not belong to "+p.String())
}

// AllPlatforms returns the supported platforms in registration order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformInstagram,
		PlatformFacebook,
		PlatformTikTok,
		PlatformTwitter,
		PlatformLinkedIn,
		PlatformSnapchat,
	}
}
