package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SessionCookieName holds the signed session token.
const SessionCookieName = "meet-os"

var ErrNoSession = errors.New("no session cookie")

// Sessions issues and reads the session cookie. There is no server-side
// session table: a token stays valid until it expires, even after logout.
type Sessions struct {
	tokens   TokenService
	duration time.Duration
	secure   bool
}

func NewSessions(tokens TokenService, duration time.Duration, secure bool) *Sessions {
	return &Sessions{tokens: tokens, duration: duration, secure: secure}
}

// Start sets a session cookie identifying email.
func (s *Sessions) Start(w http.ResponseWriter, email string) error {
	token, err := s.tokens.CreateToken(email, s.duration)
	if err != nil {
		return fmt.Errorf("failed to create session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.duration.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End clears the session cookie.
func (s *Sessions) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Email returns the address carried by a valid session cookie.
func (s *Sessions) Email(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}

	claims, err := s.tokens.VerifyToken(cookie.Value)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}
