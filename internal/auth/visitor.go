package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
)

// Visitor describes who is making the current request.
type Visitor struct {
	LoggedIn bool
	IsAdmin  bool
	User     *store.User
}

// Guest is the zero visitor.
var Guest = Visitor{}

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const VisitorContextKey ContextKey = "visitor"

// AdminList is the read-only allow-list of administrator addresses.
type AdminList map[string]struct{}

func NewAdminList(emails []string) AdminList {
	list := make(AdminList, len(emails))
	for _, e := range emails {
		list[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return list
}

func (a AdminList) Contains(email string) bool {
	_, ok := a[strings.ToLower(email)]
	return ok
}

func (a AdminList) Emails() []string {
	out := make([]string, 0, len(a))
	for e := range a {
		out = append(out, e)
	}
	return out
}

// DenyFunc renders the page for a refused request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Middleware resolves the visitor for every request and guards routes.
type Middleware struct {
	sessions *Sessions
	users    UserLookup
	admins   AdminList
	deny     DenyFunc
}

func NewMiddleware(sessions *Sessions, users UserLookup, admins AdminList, deny DenyFunc) *Middleware {
	return &Middleware{sessions: sessions, users: users, admins: admins, deny: deny}
}

// Resolve computes the visitor once and stores it in the request context.
// Any failure degrades to a guest.
func (m *Middleware) Resolve(r *http.Request) Visitor {
	email, err := m.sessions.Email(r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			logging.GetLoggerFromContext(r.Context()).Debug("ignoring session cookie", "error", err)
		}
		return Guest
	}

	u, err := m.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.GetLoggerFromContext(r.Context()).Warn("failed to resolve visitor", "email", email, "error", err)
		}
		return Guest
	}

	return Visitor{
		LoggedIn: true,
		IsAdmin:  m.admins.Contains(u.Email),
		User:     u,
	}
}

func (m *Middleware) ResolveVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := m.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), v)))
	})
}

// RequireLogin answers 401 for guests.
func (m *Middleware) RequireLogin(next http.Handler) http.Handler {
	return m.guard(RequireSession, next)
}

// RequireAdmin answers 401 for guests and 403 for other users.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.guard(CanViewAdmin, next)
}

func (m *Middleware) guard(check func(Visitor) Decision, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := check(VisitorFromContext(r.Context())); !d.Allowed() {
			m.deny(w, r, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, VisitorContextKey, v)
}

// VisitorFromContext returns the resolved visitor, or Guest.
func VisitorFromContext(ctx context.Context) Visitor {
	if v, ok := ctx.Value(VisitorContextKey).(Visitor); ok {
		return v
	}
	return Guest
}
