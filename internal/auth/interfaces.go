package auth

import (
	"context"
	"time"

	"github.com/redmonkez12/meetos/internal/store"
)

// TokenService defines the interface for session token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// Notifier delivers the account emails. Calls return immediately; delivery
// failures are logged by the implementation.
type Notifier interface {
	SendVerification(ctx context.Context, u *store.User)
	SendPasswordReset(ctx context.Context, u *store.User)
	SendPasswordChanged(ctx context.Context, u *store.User)
	NotifyAdminsNewUser(ctx context.Context, u *store.User)
	NotifyAdminsUserVerified(ctx context.Context, u *store.User)
}

// Auditor records notable account actions.
type Auditor interface {
	Record(ctx context.Context, typ string, data map[string]any)
}

// UserLookup is the slice of the store the visitor middleware needs.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
}
