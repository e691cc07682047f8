// Package store defines the persistence contract used by every service and
// the shared record types. Implementations live in the postgres and memory
// subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by every lookup that matched nothing.
var ErrNotFound = errors.New("store: not found")

// UniqueConstraintError reports an insert that collided with an existing
// record on Field ("email", "uid", "gid", ...).
type UniqueConstraintError struct {
	Field string
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("store: unique constraint violated on %s", e.Field)
}

// IsUniqueViolation reports whether err is a UniqueConstraintError on field.
// An empty field matches any field.
func IsUniqueViolation(err error, field string) bool {
	var uce *UniqueConstraintError
	if !errors.As(err, &uce) {
		return false
	}
	return field == "" || uce.Field == field
}

// Counter names used with Store.Increment.
const (
	CounterUser  = "user"
	CounterGroup = "group"
	CounterEvent = "event"
)

// ProfileUpdate carries the editable part of a user record.
type ProfileUpdate struct {
	Name     string
	GitHub   string
	GitLab   string
	LinkedIn string
	About    string
}

// GroupUpdate carries the editable part of a group record.
type GroupUpdate struct {
	Name        string
	Location    string
	Description string
}

// EventUpdate carries the editable part of an event record.
type EventUpdate struct {
	Title       string
	Date        time.Time
	Location    string
	Description string
}

// Store is the persistence adapter. Lookups return ErrNotFound when nothing
// matches, inserts return *UniqueConstraintError on duplicate keys, and
// list operations return records in ascending id order.
type Store interface {
	// Increment atomically bumps the named counter and returns the new value.
	// The first call for a name returns 1.
	Increment(ctx context.Context, name string) (int64, error)

	AddUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, uid int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserCode(ctx context.Context, email, process, code string) error
	// ConsumeCode clears the user's code only when both process and code
	// still match, so at most one caller succeeds per issued code.
	ConsumeCode(ctx context.Context, uid int64, process, code string) (*User, error)
	MarkVerified(ctx context.Context, uid int64, at time.Time) error
	SavePassword(ctx context.Context, uid int64, hash string) error
	UpdateProfile(ctx context.Context, uid int64, p ProfileUpdate) error

	AddGroup(ctx context.Context, g *Group) error
	GetGroupByID(ctx context.Context, gid int64) (*Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	GroupsByOwner(ctx context.Context, uid int64) ([]Group, error)
	GroupsByMember(ctx context.Context, uid int64) ([]Group, error)
	UpdateGroup(ctx context.Context, gid int64, g GroupUpdate) error

	AddMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, gid, uid int64) (*Membership, error)
	RemoveMembership(ctx context.Context, gid, uid int64) error
	MembersOfGroup(ctx context.Context, gid int64) ([]User, error)

	AddEvent(ctx context.Context, e *Event) error
	GetEventByID(ctx context.Context, eid int64) (*Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	EventsByGroup(ctx context.Context, gid int64) ([]Event, error)
	UpdateEvent(ctx context.Context, eid int64, e EventUpdate) error
	SetEventStatus(ctx context.Context, eid int64, status EventStatus) error

	AddRSVP(ctx context.Context, r *RSVP) error
	GetRSVP(ctx context.Context, eid, uid int64) (*RSVP, error)
	UpdateRSVP(ctx context.Context, eid, uid int64, status bool) error
	RSVPsForEvent(ctx context.Context, eid int64) ([]Attendee, error)

	AddAudit(ctx context.Context, a *AuditEntry) error
	ListAudit(ctx context.Context) ([]AuditEntry, error)

	Ping(ctx context.Context) error
}
