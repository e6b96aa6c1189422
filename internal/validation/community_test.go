package validation

import (
	"testing"
	"time"
)

func TestValidateCommunitySlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{name: "valid with number", slug: "writers-2", ok: true},
		{name: "valid plain", slug: "bookclub", ok: true},
		{name: "too short", slug: "ab", ok: false},
		{name: "minimum length", slug: "abc", ok: true},
		{name: "maximum length", slug: "abcdefghijklmnopqrstuvwx", ok: true},
		{name: "too long", slug: "abcdefghijklmnopqrstuvwxy", ok: false},
		{name: "uppercase", slug: "Writers", ok: false},
		{name: "underscore", slug: "book_club", ok: false},
		{name: "space", slug: "book club", ok: false},
		{name: "symbol", slug: "book!club", ok: false},
		{name: "leading hyphen", slug: "-writers", ok: false},
		{name: "trailing hyphen", slug: "writers-", ok: false},
		{name: "reserved admin", slug: "admin", ok: false},
		{name: "reserved api", slug: "api", ok: false},
		{name: "reserved console", slug: "console", ok: false},
		{name: "reserved timeline", slug: "timeline", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCommunitySlug(tc.slug)
			if tc.ok && err != nil {
				t.Fatalf("expected valid slug, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid slug, got nil error")
			}
		})
	}
}

func TestValidateProfileUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		ok       bool
	}{
		{name: "valid lowercase", username: "mina", ok: true},
		{name: "valid mixed case", username: "Mina_Park", ok: true},
		{name: "valid single char", username: "m", ok: true},
		{name: "valid fifty chars", username: "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwx", ok: true},
		{name: "too long", username: "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxy", ok: false},
		{name: "empty", username: "", ok: false},
		{name: "hyphen", username: "mina-park", ok: false},
		{name: "space", username: "mina park", ok: false},
		{name: "emoji", username: "mina🌸", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateProfileUsername(tc.username)
			if tc.ok && err != nil {
				t.Fatalf("expected valid username, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid username, got nil error")
			}
		})
	}
}

func TestValidateDateWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()
	later := now.Add(time.Hour)

	if err := ValidateDateWindow("recruiting", &now, &later); err != nil {
		t.Fatalf("expected ordered window to be valid: %v", err)
	}
	if err := ValidateDateWindow("recruiting", &later, &now); err == nil {
		t.Fatal("expected reversed window to fail")
	}
	if err := ValidateDateWindow("recruiting", &now, &now); err == nil {
		t.Fatal("expected zero-length window to fail")
	}
	if err := ValidateDateWindow("recruiting", nil, &later); err != nil {
		t.Fatalf("open-ended windows are allowed: %v", err)
	}
	if err := ValidateDateWindow("recruiting", nil, nil); err != nil {
		t.Fatalf("absent windows are allowed: %v", err)
	}
}
