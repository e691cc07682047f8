package group

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/markdown"
	"github.com/redmonkez12/meetos/internal/store"
)

const MinSubjectLength = 5

var (
	ErrNameRequired     = errors.New("group name is required")
	ErrOwnerNotFound    = errors.New("owner does not exist")
	ErrOwnerCannotJoin  = errors.New("owner cannot join their own group")
	ErrOwnerCannotLeave = errors.New("owner cannot leave their own group")
	ErrAlreadyMember    = errors.New("already a member")
	ErrNotMember        = errors.New("not a member")
	ErrSubjectTooShort  = fmt.Errorf("subject must be at least %d characters", MinSubjectLength)
	ErrEmptyMessage     = errors.New("message is empty")
	ErrInvalidSubject   = errors.New("subject must be a single line")
)

// Notifier delivers group related emails without blocking.
type Notifier interface {
	GroupCreated(ctx context.Context, owner *store.User, g *store.Group)
	MemberJoined(ctx context.Context, owner, member *store.User, g *store.Group)
	MemberLeft(ctx context.Context, owner, member *store.User, g *store.Group)
	MessageMembers(ctx context.Context, members []store.User, g *store.Group, subject string, content template.HTML)
}

type Auditor interface {
	Record(ctx context.Context, typ string, data map[string]any)
}

type Input struct {
	Name        string
	Location    string
	Description string
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Name == "" {
		return in, ErrNameRequired
	}
	return in, nil
}

// Details is what the group page shows.
type Details struct {
	Group    *store.Group
	Owner    *store.User
	Members  []store.User
	Events   []store.Event
	IsMember bool
}

type Service struct {
	store    store.Store
	notifier Notifier
	audit    Auditor
	now      func() time.Time
}

func NewService(st store.Store, notifier Notifier, auditor Auditor) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		audit:    auditor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, gid int64) (*store.Group, error) {
	return s.store.GetGroupByID(ctx, gid)
}

func (s *Service) List(ctx context.Context) ([]store.Group, error) {
	return s.store.ListGroups(ctx)
}

// Details loads a group with its owner, members and events. viewer may be nil.
func (s *Service) Details(ctx context.Context, gid int64, viewer *store.User) (*Details, error) {
	g, err := s.store.GetGroupByID(ctx, gid)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.GetUserByID(ctx, g.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner of group %d: %w", gid, err)
	}
	members, err := s.store.MembersOfGroup(ctx, gid)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of group %d: %w", gid, err)
	}
	events, err := s.store.EventsByGroup(ctx, gid)
	if err != nil {
		return nil, fmt.Errorf("failed to load events of group %d: %w", gid, err)
	}

	d := &Details{Group: g, Owner: owner, Members: members, Events: events}
	if viewer != nil {
		for _, m := range members {
			if m.UID == viewer.UID {
				d.IsMember = true
				break
			}
		}
	}
	return d, nil
}

// Create adds a group owned by ownerID. Only admins reach this.
func (s *Service) Create(ctx context.Context, in Input, ownerID int64) (*store.Group, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	owner, err := s.store.GetUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}

	gid, err := s.store.Increment(ctx, store.CounterGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate group id: %w", err)
	}

	g := &store.Group{
		GID:          gid,
		Name:         in.Name,
		Location:     in.Location,
		Description:  in.Description,
		Owner:        owner.UID,
		CreationDate: s.now(),
	}
	if err := s.store.AddGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.notifier.GroupCreated(ctx, owner, g)
	s.audit.Record(ctx, store.AuditCreateGroup, map[string]any{"gid": g.GID, "owner": owner.UID})

	return g, nil
}

func (s *Service) Update(ctx context.Context, gid int64, in Input) error {
	in, err := in.normalize()
	if err != nil {
		return err
	}
	return s.store.UpdateGroup(ctx, gid, store.GroupUpdate{
		Name:        in.Name,
		Location:    in.Location,
		Description: in.Description,
	})
}

// Join adds u to g and tells the owner.
func (s *Service) Join(ctx context.Context, u *store.User, g *store.Group) error {
	if u.UID == g.Owner {
		return ErrOwnerCannotJoin
	}

	err := s.store.AddMembership(ctx, &store.Membership{GID: g.GID, UID: u.UID, JoinDate: s.now()})
	if err != nil {
		if store.IsUniqueViolation(err, "") {
			return ErrAlreadyMember
		}
		return fmt.Errorf("failed to add membership: %w", err)
	}

	s.notifyOwner(ctx, g, func(owner *store.User) { s.notifier.MemberJoined(ctx, owner, u, g) })
	s.audit.Record(ctx, store.AuditJoinGroup, map[string]any{"gid": g.GID, "uid": u.UID})
	return nil
}

// EnsureMember joins u to g unless they already belong to it. The owner
// counts as a member.
func (s *Service) EnsureMember(ctx context.Context, u *store.User, g *store.Group) error {
	if u.UID == g.Owner {
		return nil
	}
	if err := s.Join(ctx, u, g); err != nil && !errors.Is(err, ErrAlreadyMember) {
		return err
	}
	return nil
}

func (s *Service) Leave(ctx context.Context, u *store.User, g *store.Group) error {
	if u.UID == g.Owner {
		return ErrOwnerCannotLeave
	}

	if err := s.store.RemoveMembership(ctx, g.GID, u.UID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	s.notifyOwner(ctx, g, func(owner *store.User) { s.notifier.MemberLeft(ctx, owner, u, g) })
	s.audit.Record(ctx, store.AuditLeaveGroup, map[string]any{"gid": g.GID, "uid": u.UID})
	return nil
}

// ContactMembers renders content as markdown and mails it to every member.
// It returns the number of recipients.
func (s *Service) ContactMembers(ctx context.Context, g *store.Group, subject, content string) (int, error) {
	subject = strings.TrimSpace(subject)
	if strings.ContainsAny(subject, "\r\n") {
		return 0, ErrInvalidSubject
	}
	if len(subject) < MinSubjectLength {
		return 0, ErrSubjectTooShort
	}
	if strings.TrimSpace(content) == "" {
		return 0, ErrEmptyMessage
	}

	html, err := markdown.ToHTML(content)
	if err != nil {
		return 0, fmt.Errorf("failed to render message: %w", err)
	}

	members, err := s.store.MembersOfGroup(ctx, g.GID)
	if err != nil {
		return 0, fmt.Errorf("failed to load members: %w", err)
	}

	s.notifier.MessageMembers(ctx, members, g, subject, html)
	return len(members), nil
}

func (s *Service) notifyOwner(ctx context.Context, g *store.Group, fn func(owner *store.User)) {
	owner, err := s.store.GetUserByID(ctx, g.Owner)
	if err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to load group owner", "gid", g.GID, "owner", g.Owner, "error", err)
		return
	}
	fn(owner)
}
