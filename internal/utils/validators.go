package utils

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"github.com/mkarlsen/userdeck/internal/config"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	urlRegex      = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
	nicknameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{2,29}$`)
)

// ValidateEmail performs a syntactic check on the email address. It does not
// verify deliverability.
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

// ValidateURL checks that url is an absolute http(s) URL. An empty string
// passes through unchanged since profile URLs are optional.
func ValidateURL(url string) (string, error) {
	if url == "" {
		return url, nil
	}
	if !urlRegex.MatchString(url) {
		return "", errors.New("invalid URL format")
	}
	return url, nil
}

// ValidateNickname checks that the nickname starts with a letter, is 3-30
// characters long and contains only alphanumerics, underscores or hyphens.
func ValidateNickname(nickname string) (string, error) {
	if !nicknameRegex.MatchString(nickname) {
		return "", errors.New("nickname must start with a letter, be 3-30 characters long, and contain only alphanumeric characters, underscores, or hyphens")
	}
	return nickname, nil
}

// ValidatePassword checks the password against the configured policy.
func ValidatePassword(password string, policy config.PasswordPolicy) error {
	if len(password) < policy.MinLength {
		return fmt.Errorf("password must be at least %d characters long", policy.MinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return errors.New("password must contain an uppercase letter")
	}
	if policy.RequireLower && !hasLower {
		return errors.New("password must contain a lowercase letter")
	}
	if policy.RequireDigit && !hasDigit {
		return errors.New("password must contain a digit")
	}
	if policy.RequireSpecial && !hasSpecial {
		return errors.New("password must contain a special character")
	}

	return nil
}
