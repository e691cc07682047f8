package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Purposes used by the account handlers.
const (
	PurposeRegister = "register"
	PurposeLogin    = "login"
	PurposeReset    = "reset-password"
	PurposeResend   = "resend-verification"
)

// Policy is the number of requests allowed per window for one purpose.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies applies when a limiter is built without explicit policies.
var DefaultPolicies = map[string]Policy{
	PurposeRegister: {Limit: 5, Window: time.Hour},
	PurposeLogin:    {Limit: 10, Window: 15 * time.Minute},
	PurposeReset:    {Limit: 5, Window: time.Hour},
	PurposeResend:   {Limit: 5, Window: time.Hour},
}

// DefaultCooldown is the minimum gap between two mails to the same address.
const DefaultCooldown = time.Minute

// Limiter throttles the account endpoints per client IP and per email.
type Limiter interface {
	// CheckIPRateLimitWithPurpose reports whether ip has used up its budget for purpose.
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
	// CheckEmailCooldown reports whether a mail was sent to email too recently.
	CheckEmailCooldown(ctx context.Context, email string) (bool, error)
	SetEmailCooldown(ctx context.Context, email string) error
}

func policyFor(policies map[string]Policy, purpose string) Policy {
	if p, ok := policies[purpose]; ok {
		return p
	}
	return Policy{Limit: 10, Window: 15 * time.Minute}
}

// ClientIP is the host part of RemoteAddr. Forwarded headers are ignored
// here; behind a trusted proxy chi's RealIP has already rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP stores a bare address
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// Disabled never throttles. Used when RATE_LIMIT_ENABLED is false.
type Disabled struct{}

func (Disabled) CheckIPRateLimitWithPurpose(context.Context, string, string) (bool, error) {
	return false, nil
}

func (Disabled) RecordIPRequestWithPurpose(context.Context, string, string) error { return nil }

func (Disabled) CheckEmailCooldown(context.Context, string) (bool, error) { return false, nil }

func (Disabled) SetEmailCooldown(context.Context, string) error { return nil }
