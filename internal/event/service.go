package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redmonkez12/meetos/internal/store"
)

const MinTitleLength = 10

var (
	ErrTitleTooShort   = fmt.Errorf("title must be at least %d characters", MinTitleLength)
	ErrInvalidDate     = errors.New("invalid date")
	ErrDateInPast      = errors.New("event date is in the past")
	ErrOwnerCannotRSVP = errors.New("the owner of the group cannot RSVP")
	ErrAlreadyRSVPed   = errors.New("already RSVPed")
	ErrNotRSVPed       = errors.New("not registered to the event")
	ErrCancelled       = errors.New("event was cancelled")
)

// Accepted layouts for the date field. The browser sends local time.
var dateLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04"}

// Joiner makes a user a member of a group if they are not one already.
type Joiner interface {
	EnsureMember(ctx context.Context, u *store.User, g *store.Group) error
}

type Auditor interface {
	Record(ctx context.Context, typ string, data map[string]any)
}

// Input is the add-event and edit-event form.
type Input struct {
	Title string
	Date  string
	// Offset is the browser's timezone offset in minutes, added to the
	// local time to get UTC.
	Offset      int
	Location    string
	Description string
}

type Details struct {
	Event     *store.Event
	Group     *store.Group
	Attendees []store.Attendee
	// RSVP of the viewer, nil when they never answered.
	RSVP *store.RSVP
}

type Service struct {
	store  store.Store
	joiner Joiner
	audit  Auditor
	now    func() time.Time
}

func NewService(st store.Store, joiner Joiner, auditor Auditor) *Service {
	return &Service{
		store:  st,
		joiner: joiner,
		audit:  auditor,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, eid int64) (*store.Event, error) {
	return s.store.GetEventByID(ctx, eid)
}

func (s *Service) List(ctx context.Context) ([]store.Event, error) {
	return s.store.ListEvents(ctx)
}

// Details loads an event with its group and RSVPs. viewer may be nil.
func (s *Service) Details(ctx context.Context, eid int64, viewer *store.User) (*Details, error) {
	e, err := s.store.GetEventByID(ctx, eid)
	if err != nil {
		return nil, err
	}
	g, err := s.store.GetGroupByID(ctx, e.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group of event %d: %w", eid, err)
	}
	attendees, err := s.store.RSVPsForEvent(ctx, eid)
	if err != nil {
		return nil, fmt.Errorf("failed to load rsvps of event %d: %w", eid, err)
	}

	d := &Details{Event: e, Group: g, Attendees: attendees}
	if viewer != nil {
		for _, a := range attendees {
			if a.User.UID == viewer.UID {
				d.RSVP = &store.RSVP{EID: eid, UID: viewer.UID, Status: a.Status, Date: a.Date}
				break
			}
		}
	}
	return d, nil
}

// ParseDate reads a "YYYY-MM-DD HH:MM" local time and shifts it to UTC by
// offsetMinutes.
func ParseDate(value string, offsetMinutes int) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Add(time.Duration(offsetMinutes) * time.Minute), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func (s *Service) validate(in Input) (store.EventUpdate, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < MinTitleLength {
		return store.EventUpdate{}, ErrTitleTooShort
	}

	date, err := ParseDate(in.Date, in.Offset)
	if err != nil {
		return store.EventUpdate{}, err
	}
	if date.Before(s.now()) {
		return store.EventUpdate{}, ErrDateInPast
	}

	return store.EventUpdate{
		Title:       title,
		Date:        date,
		Location:    strings.TrimSpace(in.Location),
		Description: in.Description,
	}, nil
}

// Add schedules a new event in g.
func (s *Service) Add(ctx context.Context, g *store.Group, in Input) (*store.Event, error) {
	fields, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	eid, err := s.store.Increment(ctx, store.CounterEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate event id: %w", err)
	}

	e := &store.Event{
		EID:         eid,
		Title:       fields.Title,
		Description: fields.Description,
		Date:        fields.Date,
		Location:    fields.Location,
		GroupID:     g.GID,
		Status:      store.EventPublished,
	}
	if err := s.store.AddEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return e, nil
}

// Edit replaces the editable fields of e. The group never changes.
func (s *Service) Edit(ctx context.Context, e *store.Event, in Input) (*store.Event, error) {
	fields, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateEvent(ctx, e.EID, fields); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	updated := *e
	updated.Title = fields.Title
	updated.Date = fields.Date
	updated.Location = fields.Location
	updated.Description = fields.Description
	return &updated, nil
}

// Cancel marks e cancelled. Existing RSVPs stay, new ones are refused.
func (s *Service) Cancel(ctx context.Context, e *store.Event) error {
	if e.Status == store.EventCancelled {
		return ErrCancelled
	}
	if err := s.store.SetEventStatus(ctx, e.EID, store.EventCancelled); err != nil {
		return fmt.Errorf("failed to cancel event: %w", err)
	}
	e.Status = store.EventCancelled
	s.audit.Record(ctx, store.AuditCancelEvent, map[string]any{"eid": e.EID, "gid": e.GroupID})
	return nil
}

// RSVPYes records that u attends e, joining the event's group on the way.
func (s *Service) RSVPYes(ctx context.Context, u *store.User, e *store.Event) error {
	if e.Status == store.EventCancelled {
		return ErrCancelled
	}

	g, err := s.store.GetGroupByID(ctx, e.GroupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if g.Owner == u.UID {
		return ErrOwnerCannotRSVP
	}

	if err := s.joiner.EnsureMember(ctx, u, g); err != nil {
		return fmt.Errorf("failed to join group: %w", err)
	}

	existing, err := s.store.GetRSVP(ctx, e.EID, u.UID)
	switch {
	case err == nil && existing.Status:
		return ErrAlreadyRSVPed
	case err == nil:
		if err := s.store.UpdateRSVP(ctx, e.EID, u.UID, true); err != nil {
			return fmt.Errorf("failed to update rsvp: %w", err)
		}
		s.audit.Record(ctx, store.AuditRSVPYesAgain, map[string]any{"eid": e.EID, "uid": u.UID})
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to load rsvp: %w", err)
	}

	err = s.store.AddRSVP(ctx, &store.RSVP{EID: e.EID, UID: u.UID, Status: true, Date: s.now()})
	if err != nil {
		if store.IsUniqueViolation(err, "") {
			return ErrAlreadyRSVPed
		}
		return fmt.Errorf("failed to add rsvp: %w", err)
	}
	s.audit.Record(ctx, store.AuditRSVPYes, map[string]any{"eid": e.EID, "uid": u.UID})
	return nil
}

// RSVPNo withdraws an earlier RSVP.
func (s *Service) RSVPNo(ctx context.Context, u *store.User, e *store.Event) error {
	if _, err := s.store.GetRSVP(ctx, e.EID, u.UID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotRSVPed
		}
		return fmt.Errorf("failed to load rsvp: %w", err)
	}

	if err := s.store.UpdateRSVP(ctx, e.EID, u.UID, false); err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}
	s.audit.Record(ctx, store.AuditRSVPNo, map[string]any{"eid": e.EID, "uid": u.UID})
	return nil
}
