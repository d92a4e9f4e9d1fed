package utils

import (
	"testing"

	"github.com/mkarlsen/userdeck/internal/config"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"john.doe@example.com", true},
		{"a@b.co", true},
		{"user+tag@sub.example.org", true},
		{"", false},
		{"not-an-email", false},
		{"@example.com", false},
		{"user@", false},
		{"user@localhost", false},
		{"user @example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ValidateEmail(tt.email); got != tt.valid {
				t.Errorf("ValidateEmail(%q) = %v, expected %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"https url", "https://example.com/profiles/john.jpg", true},
		{"http url", "http://example.com", true},
		{"with query", "https://example.com/path?x=1", true},
		{"empty passes through", "", true},
		{"no scheme", "example.com/pic.jpg", false},
		{"ftp scheme", "ftp://example.com/pic.jpg", false},
		{"whitespace", "https://exa mple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateURL(tt.url)
			if tt.valid {
				if err != nil {
					t.Errorf("ValidateURL(%q) unexpected error: %v", tt.url, err)
				}
				if got != tt.url {
					t.Errorf("ValidateURL(%q) = %q, expected input unchanged", tt.url, got)
				}
			} else if err == nil {
				t.Errorf("ValidateURL(%q) should fail", tt.url)
			}
		})
	}
}

func TestValidateNickname(t *testing.T) {
	tests := []struct {
		nickname string
		valid    bool
	}{
		{"john_doe", true},
		{"abc", true},
		{"a2-", true},
		{"Clever-fox-123", true},
		{"ab", false},                             // too short
		{"1john", false},                          // must start with a letter
		{"_john", false},                          // must start with a letter
		{"john doe", false},                       // no spaces
		{"john.doe", false},                       // no dots
		{"", false},
		{"abcdefghijklmnopqrstuvwxyzabcde", false}, // 31 chars
		{"abcdefghijklmnopqrstuvwxyzabcd", true},   // 30 chars
	}

	for _, tt := range tests {
		t.Run(tt.nickname, func(t *testing.T) {
			_, err := ValidateNickname(tt.nickname)
			if tt.valid && err != nil {
				t.Errorf("ValidateNickname(%q) unexpected error: %v", tt.nickname, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateNickname(%q) should fail", tt.nickname)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	policy := config.PasswordPolicy{
		MinLength:    8,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "Secure1234", true},
		{"too short", "Ab1", false},
		{"no uppercase", "secure1234", false},
		{"no lowercase", "SECURE1234", false},
		{"no digit", "SecurePass", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, policy)
			if tt.valid && err != nil {
				t.Errorf("ValidatePassword(%q) unexpected error: %v", tt.password, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidatePassword(%q) should fail", tt.password)
			}
		})
	}
}

func TestValidatePassword_SpecialRequirement(t *testing.T) {
	policy := config.PasswordPolicy{MinLength: 8, RequireSpecial: true}

	if err := ValidatePassword("longenough", policy); err == nil {
		t.Error("password without special character should fail")
	}
	if err := ValidatePassword("Secure*1234", policy); err != nil {
		t.Errorf("password with special character should pass, got: %v", err)
	}
}
