package auth

import (
	"errors"
	"time"
)

// tokenIssuer is stamped on every session token and required when reading one.
const tokenIssuer = "meet-os"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims is what a session token proves: the email of the logged-in user.
type TokenClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
