// Package validation holds input validation rules shared by console and app
// handlers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var communitySlugRegex = regexp.MustCompile(`^[a-z0-9-]{3,24}$`)

var reservedCommunitySlugs = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"app":           {},
	"auth":          {},
	"bot":           {},
	"bots":          {},
	"boards":        {},
	"console":       {},
	"communities":   {},
	"conversations": {},
	"media":         {},
	"members":       {},
	"messages":      {},
	"metrics":       {},
	"notifications": {},
	"posts":         {},
	"profiles":      {},
	"replies":       {},
	"settings":      {},
	"swagger":       {},
	"timeline":      {},
	"users":         {},
	"login":         {},
	"signup":        {},
}

// ValidateCommunitySlug validates community slug format and reserved names.
func ValidateCommunitySlug(slug string) error {
	if !communitySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 3-24 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedCommunitySlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

var profileUsernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,50}$`)

// ValidateProfileUsername validates the per-community handle format.
func ValidateProfileUsername(username string) error {
	if !profileUsernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 1-50 characters and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateDateWindow checks that an optional start/end pair is ordered.
func ValidateDateWindow(label string, start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return fmt.Errorf("%s end must be after start", label)
	}
	return nil
}
