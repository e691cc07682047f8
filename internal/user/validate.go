package user

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

const MaxNameLength = 50

var (
	ErrNameRequired    = errors.New("name is required")
	ErrNameTooLong     = errors.New("name is too long")
	ErrInvalidName     = errors.New("invalid character in name")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidGitHub   = errors.New("invalid GitHub username")
	ErrInvalidGitLab   = errors.New("invalid GitLab username")
	ErrInvalidLinkedIn = errors.New("invalid LinkedIn profile link")
)

var (
	nameRe     = regexp.MustCompile(`^[a-zA-Z .'-]*$`)
	handleRe   = regexp.MustCompile(`^[a-zA-Z0-9-]*$`)
	linkedInRe = regexp.MustCompile(`^https://www\.linkedin\.com/in/[a-zA-Z0-9-]+/?$`)
)

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address only, no display name.
func ValidateEmail(email string) error {
	if email == "" || len(email) > 254 {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateName(name string) error {
	switch {
	case name == "":
		return ErrNameRequired
	case len(name) > MaxNameLength:
		return ErrNameTooLong
	case !nameRe.MatchString(name):
		return ErrInvalidName
	}
	return nil
}
