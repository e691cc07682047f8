package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is the single-process fallback used when Redis is not configured.
// Each ip/purpose pair gets a token bucket refilled at Limit per Window.
type MemoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	cooldowns map[string]time.Time
	policies  map[string]Policy
	cooldown  time.Duration
	now       func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		visitors:  make(map[string]*visitor),
		cooldowns: make(map[string]time.Time),
		policies:  DefaultPolicies,
		cooldown:  DefaultCooldown,
		now:       time.Now,
	}
}

func (l *MemoryLimiter) getLimiter(ip, purpose string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := purpose + "|" + ip
	v, exists := l.visitors[key]
	if !exists {
		p := policyFor(l.policies, purpose)
		limiter := rate.NewLimiter(rate.Every(p.Window/time.Duration(p.Limit)), p.Limit)
		l.visitors[key] = &visitor{limiter: limiter, lastSeen: l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

func (l *MemoryLimiter) CheckIPRateLimitWithPurpose(_ context.Context, ip, purpose string) (bool, error) {
	return l.getLimiter(ip, purpose).TokensAt(l.now()) < 1, nil
}

func (l *MemoryLimiter) RecordIPRequestWithPurpose(_ context.Context, ip, purpose string) error {
	l.getLimiter(ip, purpose).AllowN(l.now(), 1)
	return nil
}

func (l *MemoryLimiter) CheckEmailCooldown(_ context.Context, email string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.cooldowns[strings.ToLower(email)]
	return ok && l.now().Before(until), nil
}

func (l *MemoryLimiter) SetEmailCooldown(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cooldowns[strings.ToLower(email)] = l.now().Add(l.cooldown)
	return nil
}

// Cleanup drops entries not seen for idle. It runs until ctx is done.
func (l *MemoryLimiter) Cleanup(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(idle)
		}
	}
}

func (l *MemoryLimiter) sweep(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(l.visitors, key)
		}
	}
	for email, until := range l.cooldowns {
		if now.After(until) {
			delete(l.cooldowns, email)
		}
	}
}
