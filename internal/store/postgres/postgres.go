// Package postgres implements store.Store on top of bun and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/meetos/internal/store"
)

const uniqueViolation = "23505"

type Store struct {
	db *bun.DB
}

var _ store.Store = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Increment bumps the named counter in a single upsert so concurrent callers
// are serialised on the counter row.
func (s *Store) Increment(ctx context.Context, name string) (int64, error) {
	var count int64
	err := s.db.NewRaw(
		"INSERT INTO counters (name, count) VALUES (?, 1) "+
			"ON CONFLICT (name) DO UPDATE SET count = counters.count + 1 "+
			"RETURNING count",
		name,
	).Scan(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return count, nil
}

// mapError translates driver errors into store errors.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &store.UniqueConstraintError{Field: constraintField(pqErr.Constraint)}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

// constraintField names the field guarded by a Postgres constraint.
func constraintField(constraint string) string {
	switch {
	case strings.HasSuffix(constraint, "_email_key"):
		return "email"
	case constraint == "users_pkey":
		return "uid"
	case constraint == "groups_pkey":
		return "gid"
	case constraint == "events_pkey":
		return "eid"
	case constraint == "memberships_pkey":
		return "membership"
	case constraint == "rsvps_pkey":
		return "rsvp"
	default:
		return constraint
	}
}

// requireRows turns a zero-row update into store.ErrNotFound.
func requireRows(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
