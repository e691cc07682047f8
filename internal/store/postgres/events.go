package postgres

import (
	"context"
	"time"

	"github.com/redmonkez12/meetos/internal/database"
	"github.com/redmonkez12/meetos/internal/store"
)

func (s *Store) AddEvent(ctx context.Context, e *store.Event) error {
	row := &database.Event{
		EID:         e.EID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Location:    e.Location,
		GroupID:     e.GroupID,
		Status:      string(e.Status),
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return mapError(err, "create event")
}

func (s *Store) GetEventByID(ctx context.Context, eid int64) (*store.Event, error) {
	row := new(database.Event)
	if err := s.db.NewSelect().Model(row).Where("eid = ?", eid).Scan(ctx); err != nil {
		return nil, mapError(err, "get event by id")
	}
	return fromDBEvent(row), nil
}

func (s *Store) ListEvents(ctx context.Context) ([]store.Event, error) {
	var rows []database.Event
	if err := s.db.NewSelect().Model(&rows).Order("eid ASC").Scan(ctx); err != nil {
		return nil, mapError(err, "list events")
	}
	return fromDBEvents(rows), nil
}

func (s *Store) EventsByGroup(ctx context.Context, gid int64) ([]store.Event, error) {
	var rows []database.Event
	err := s.db.NewSelect().
		Model(&rows).
		Where("group_id = ?", gid).
		Order("eid ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "list events by group")
	}
	return fromDBEvents(rows), nil
}

func (s *Store) UpdateEvent(ctx context.Context, eid int64, e store.EventUpdate) error {
	res, err := s.db.NewUpdate().
		Model((*database.Event)(nil)).
		Set("title = ?", e.Title).
		Set("date = ?", e.Date).
		Set("location = ?", e.Location).
		Set("description = ?", e.Description).
		Where("eid = ?", eid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "update event")
	}
	return requireRows(res, "update event")
}

func (s *Store) SetEventStatus(ctx context.Context, eid int64, status store.EventStatus) error {
	res, err := s.db.NewUpdate().
		Model((*database.Event)(nil)).
		Set("status = ?", string(status)).
		Where("eid = ?", eid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "set event status")
	}
	return requireRows(res, "set event status")
}

func (s *Store) AddRSVP(ctx context.Context, r *store.RSVP) error {
	row := &database.RSVP{EID: r.EID, UID: r.UID, Status: r.Status, Date: r.Date}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return mapError(err, "add rsvp")
}

func (s *Store) GetRSVP(ctx context.Context, eid, uid int64) (*store.RSVP, error) {
	row := new(database.RSVP)
	err := s.db.NewSelect().
		Model(row).
		Where("eid = ?", eid).
		Where("uid = ?", uid).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "get rsvp")
	}
	return &store.RSVP{EID: row.EID, UID: row.UID, Status: row.Status, Date: row.Date}, nil
}

func (s *Store) UpdateRSVP(ctx context.Context, eid, uid int64, status bool) error {
	res, err := s.db.NewUpdate().
		Model((*database.RSVP)(nil)).
		Set("status = ?", status).
		Set("date = ?", time.Now().UTC()).
		Where("eid = ?", eid).
		Where("uid = ?", uid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "update rsvp")
	}
	return requireRows(res, "update rsvp")
}

type attendeeRow struct {
	database.User `bun:",extend"`

	RSVPStatus bool      `bun:"rsvp_status"`
	RSVPDate   time.Time `bun:"rsvp_date"`
}

func (s *Store) RSVPsForEvent(ctx context.Context, eid int64) ([]store.Attendee, error) {
	var rows []attendeeRow
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("u.*").
		ColumnExpr("r.status AS rsvp_status, r.date AS rsvp_date").
		Join("JOIN rsvps AS r ON r.uid = u.uid").
		Where("r.eid = ?", eid).
		OrderExpr("r.seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "list rsvps for event")
	}

	out := make([]store.Attendee, 0, len(rows))
	for i := range rows {
		out = append(out, store.Attendee{
			User:   *fromDBUser(&rows[i].User),
			Status: rows[i].RSVPStatus,
			Date:   rows[i].RSVPDate,
		})
	}
	return out, nil
}

func fromDBEvent(row *database.Event) *store.Event {
	return &store.Event{
		EID:         row.EID,
		Title:       row.Title,
		Description: row.Description,
		Date:        row.Date,
		Location:    row.Location,
		GroupID:     row.GroupID,
		Status:      store.EventStatus(row.Status),
	}
}

func fromDBEvents(rows []database.Event) []store.Event {
	out := make([]store.Event, 0, len(rows))
	for i := range rows {
		out = append(out, *fromDBEvent(&rows[i]))
	}
	return out
}
