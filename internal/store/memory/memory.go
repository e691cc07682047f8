// Package memory is a mutex-guarded, process-local store.Store used by tests
// and by development runs without a database.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/redmonkez12/meetos/internal/store"
)

type rsvpKey struct{ eid, uid int64 }

type Store struct {
	mu          sync.Mutex
	counters    map[string]int64
	users       map[int64]*store.User
	emails      map[string]int64
	groups      map[int64]*store.Group
	memberships []store.Membership
	events      map[int64]*store.Event
	rsvps       map[rsvpKey]*store.RSVP
	rsvpOrder   []rsvpKey
	audit       []store.AuditEntry
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		counters: make(map[string]int64),
		users:    make(map[int64]*store.User),
		emails:   make(map[string]int64),
		groups:   make(map[int64]*store.Group),
		events:   make(map[int64]*store.Event),
		rsvps:    make(map[rsvpKey]*store.RSVP),
	}
}

func (s *Store) Increment(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

func (s *Store) AddUser(_ context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[u.Email]; ok {
		return &store.UniqueConstraintError{Field: "email"}
	}
	if _, ok := s.users[u.UID]; ok {
		return &store.UniqueConstraintError{Field: "uid"}
	}

	cp := *u
	s.users[u.UID] = &cp
	s.emails[u.Email] = u.UID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, uid int64) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.emails[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.users[uid]
	return &cp, nil
}

func (s *Store) ListUsers(_ context.Context) ([]store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.User, 0, len(s.users))
	for _, uid := range slices.Sorted(maps.Keys(s.users)) {
		out = append(out, *s.users[uid])
	}
	return out, nil
}

func (s *Store) SetUserCode(_ context.Context, email, process, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.emails[email]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	u := s.users[uid]
	u.Code = code
	u.Process = process
	u.CodeGeneratedDate = &now
	return nil
}

func (s *Store) ConsumeCode(_ context.Context, uid int64, process, code string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok || code == "" || u.Code != code || u.Process != process {
		return nil, store.ErrNotFound
	}
	u.Code = ""
	cp := *u
	return &cp, nil
}

func (s *Store) MarkVerified(_ context.Context, uid int64, at time.Time) error {
	return s.updateUser(uid, func(u *store.User) {
		u.Verified = true
		u.VerificationDate = &at
	})
}

func (s *Store) SavePassword(_ context.Context, uid int64, hash string) error {
	return s.updateUser(uid, func(u *store.User) { u.Password = hash })
}

func (s *Store) UpdateProfile(_ context.Context, uid int64, p store.ProfileUpdate) error {
	return s.updateUser(uid, func(u *store.User) {
		u.Name = p.Name
		u.GitHub = p.GitHub
		u.GitLab = p.GitLab
		u.LinkedIn = p.LinkedIn
		u.About = p.About
	})
}

func (s *Store) updateUser(uid int64, fn func(u *store.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *Store) AddGroup(_ context.Context, g *store.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[g.GID]; ok {
		return &store.UniqueConstraintError{Field: "gid"}
	}
	cp := *g
	s.groups[g.GID] = &cp
	return nil
}

func (s *Store) GetGroupByID(_ context.Context, gid int64) (*store.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[gid]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) ListGroups(_ context.Context) ([]store.Group, error) {
	return s.filterGroups(func(*store.Group) bool { return true }), nil
}

func (s *Store) GroupsByOwner(_ context.Context, uid int64) ([]store.Group, error) {
	return s.filterGroups(func(g *store.Group) bool { return g.Owner == uid }), nil
}

func (s *Store) GroupsByMember(_ context.Context, uid int64) ([]store.Group, error) {
	s.mu.Lock()
	member := make(map[int64]bool)
	for _, m := range s.memberships {
		if m.UID == uid {
			member[m.GID] = true
		}
	}
	s.mu.Unlock()

	return s.filterGroups(func(g *store.Group) bool { return member[g.GID] }), nil
}

func (s *Store) filterGroups(keep func(g *store.Group) bool) []store.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []store.Group{}
	for _, gid := range slices.Sorted(maps.Keys(s.groups)) {
		if g := s.groups[gid]; keep(g) {
			out = append(out, *g)
		}
	}
	return out
}

func (s *Store) UpdateGroup(_ context.Context, gid int64, upd store.GroupUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[gid]
	if !ok {
		return store.ErrNotFound
	}
	g.Name = upd.Name
	g.Location = upd.Location
	g.Description = upd.Description
	return nil
}

func (s *Store) AddMembership(_ context.Context, m *store.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.memberships {
		if existing.GID == m.GID && existing.UID == m.UID {
			return &store.UniqueConstraintError{Field: "membership"}
		}
	}
	s.memberships = append(s.memberships, *m)
	return nil
}

func (s *Store) GetMembership(_ context.Context, gid, uid int64) (*store.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.memberships {
		if m.GID == gid && m.UID == uid {
			cp := m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RemoveMembership(_ context.Context, gid, uid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.memberships {
		if m.GID == gid && m.UID == uid {
			s.memberships = slices.Delete(s.memberships, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) MembersOfGroup(_ context.Context, gid int64) ([]store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []store.User{}
	for _, m := range s.memberships {
		if m.GID != gid {
			continue
		}
		if u, ok := s.users[m.UID]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *Store) AddEvent(_ context.Context, e *store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.EID]; ok {
		return &store.UniqueConstraintError{Field: "eid"}
	}
	cp := *e
	s.events[e.EID] = &cp
	return nil
}

func (s *Store) GetEventByID(_ context.Context, eid int64) (*store.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eid]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListEvents(_ context.Context) ([]store.Event, error) {
	return s.filterEvents(func(*store.Event) bool { return true }), nil
}

func (s *Store) EventsByGroup(_ context.Context, gid int64) ([]store.Event, error) {
	return s.filterEvents(func(e *store.Event) bool { return e.GroupID == gid }), nil
}

func (s *Store) filterEvents(keep func(e *store.Event) bool) []store.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []store.Event{}
	for _, eid := range slices.Sorted(maps.Keys(s.events)) {
		if e := s.events[eid]; keep(e) {
			out = append(out, *e)
		}
	}
	return out
}

func (s *Store) UpdateEvent(_ context.Context, eid int64, upd store.EventUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eid]
	if !ok {
		return store.ErrNotFound
	}
	e.Title = upd.Title
	e.Date = upd.Date
	e.Location = upd.Location
	e.Description = upd.Description
	return nil
}

func (s *Store) SetEventStatus(_ context.Context, eid int64, status store.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eid]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = status
	return nil
}

func (s *Store) AddRSVP(_ context.Context, r *store.RSVP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rsvpKey{r.EID, r.UID}
	if _, ok := s.rsvps[key]; ok {
		return &store.UniqueConstraintError{Field: "rsvp"}
	}
	cp := *r
	s.rsvps[key] = &cp
	s.rsvpOrder = append(s.rsvpOrder, key)
	return nil
}

func (s *Store) GetRSVP(_ context.Context, eid, uid int64) (*store.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rsvps[rsvpKey{eid, uid}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateRSVP(_ context.Context, eid, uid int64, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rsvps[rsvpKey{eid, uid}]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	r.Date = time.Now().UTC()
	return nil
}

func (s *Store) RSVPsForEvent(_ context.Context, eid int64) ([]store.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []store.Attendee{}
	for _, key := range s.rsvpOrder {
		if key.eid != eid {
			continue
		}
		r := s.rsvps[key]
		if u, ok := s.users[key.uid]; ok {
			out = append(out, store.Attendee{User: *u, Status: r.Status, Date: r.Date})
		}
	}
	return out, nil
}

func (s *Store) AddAudit(_ context.Context, a *store.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	cp.ID = int64(len(s.audit) + 1)
	cp.Data = maps.Clone(a.Data)
	s.audit = append(s.audit, cp)
	a.ID = cp.ID
	return nil
}

func (s *Store) ListAudit(_ context.Context) ([]store.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audit), nil
}

func (s *Store) Ping(context.Context) error { return nil }
