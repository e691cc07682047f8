package auth

import (
	"net/http"

	"github.com/redmonkez12/meetos/internal/store"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allowed Decision = iota
	// DeniedNoSession means the visitor is not logged in.
	DeniedNoSession
	// DeniedForbidden means the visitor is logged in without the required role.
	DeniedForbidden
	// DeniedNotOwner is a business-rule refusal rendered as a normal page.
	DeniedNotOwner
)

func (d Decision) Allowed() bool { return d == Allowed }

// StatusCode is the HTTP status a handler answers with for d.
func (d Decision) StatusCode() int {
	switch d {
	case DeniedNoSession:
		return http.StatusUnauthorized
	case DeniedForbidden:
		return http.StatusForbidden
	default:
		return http.StatusOK
	}
}

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedNoSession:
		return "denied-no-session"
	case DeniedForbidden:
		return "denied-forbidden"
	case DeniedNotOwner:
		return "denied-not-owner"
	default:
		return "unknown"
	}
}

// RequireSession allows any logged-in visitor.
func RequireSession(v Visitor) Decision {
	if !v.LoggedIn {
		return DeniedNoSession
	}
	return Allowed
}

// CanViewAdmin allows administrators only.
func CanViewAdmin(v Visitor) Decision {
	if !v.LoggedIn {
		return DeniedNoSession
	}
	if !v.IsAdmin {
		return DeniedForbidden
	}
	return Allowed
}

// IsOwner reports whether the visitor owns g.
func IsOwner(v Visitor, g *store.Group) bool {
	return v.LoggedIn && v.User != nil && g != nil && v.User.UID == g.Owner
}

// CanEditGroup allows the group owner and administrators.
func CanEditGroup(v Visitor, g *store.Group) Decision {
	if !v.LoggedIn {
		return DeniedNoSession
	}
	if v.IsAdmin || IsOwner(v, g) {
		return Allowed
	}
	return DeniedNotOwner
}

// CanBroadcast guards messages sent to every member of g.
func CanBroadcast(v Visitor, g *store.Group) Decision {
	return CanEditGroup(v, g)
}
