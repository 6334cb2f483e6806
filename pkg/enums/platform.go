package enums

import (
	"fmt"
	"strings"
)

// Platform names an external social network.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
)

var validPlatforms = []Platform{
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformFacebook,
	PlatformTwitter,
}

func (p Platform) String() string {
	return string(p)
}

func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform is case-insensitive.
func ParsePlatform(value string) (Platform, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPlatforms {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}
