package postgres

import (
	"context"

	"github.com/redmonkez12/meetos/internal/database"
	"github.com/redmonkez12/meetos/internal/store"
)

func (s *Store) AddGroup(ctx context.Context, g *store.Group) error {
	_, err := s.db.NewInsert().Model(toDBGroup(g)).Exec(ctx)
	return mapError(err, "create group")
}

func (s *Store) GetGroupByID(ctx context.Context, gid int64) (*store.Group, error) {
	row := new(database.Group)
	if err := s.db.NewSelect().Model(row).Where("gid = ?", gid).Scan(ctx); err != nil {
		return nil, mapError(err, "get group by id")
	}
	return fromDBGroup(row), nil
}

func (s *Store) ListGroups(ctx context.Context) ([]store.Group, error) {
	var rows []database.Group
	if err := s.db.NewSelect().Model(&rows).Order("gid ASC").Scan(ctx); err != nil {
		return nil, mapError(err, "list groups")
	}
	return fromDBGroups(rows), nil
}

func (s *Store) GroupsByOwner(ctx context.Context, uid int64) ([]store.Group, error) {
	var rows []database.Group
	err := s.db.NewSelect().
		Model(&rows).
		Where("owner = ?", uid).
		Order("gid ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "list groups by owner")
	}
	return fromDBGroups(rows), nil
}

func (s *Store) GroupsByMember(ctx context.Context, uid int64) ([]store.Group, error) {
	var rows []database.Group
	err := s.db.NewSelect().
		Model(&rows).
		Join("JOIN memberships AS m ON m.gid = g.gid").
		Where("m.uid = ?", uid).
		OrderExpr("g.gid ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "list groups by member")
	}
	return fromDBGroups(rows), nil
}

func (s *Store) UpdateGroup(ctx context.Context, gid int64, g store.GroupUpdate) error {
	res, err := s.db.NewUpdate().
		Model((*database.Group)(nil)).
		Set("name = ?", g.Name).
		Set("location = ?", g.Location).
		Set("description = ?", g.Description).
		Where("gid = ?", gid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "update group")
	}
	return requireRows(res, "update group")
}

func (s *Store) AddMembership(ctx context.Context, m *store.Membership) error {
	row := &database.Membership{GID: m.GID, UID: m.UID, Admin: m.Admin, JoinDate: m.JoinDate}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return mapError(err, "add membership")
}

func (s *Store) GetMembership(ctx context.Context, gid, uid int64) (*store.Membership, error) {
	row := new(database.Membership)
	err := s.db.NewSelect().
		Model(row).
		Where("gid = ?", gid).
		Where("uid = ?", uid).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "get membership")
	}
	return &store.Membership{GID: row.GID, UID: row.UID, Admin: row.Admin, JoinDate: row.JoinDate}, nil
}

func (s *Store) RemoveMembership(ctx context.Context, gid, uid int64) error {
	res, err := s.db.NewDelete().
		Model((*database.Membership)(nil)).
		Where("gid = ?", gid).
		Where("uid = ?", uid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "remove membership")
	}
	return requireRows(res, "remove membership")
}

// MembersOfGroup returns members in the order they joined.
func (s *Store) MembersOfGroup(ctx context.Context, gid int64) ([]store.User, error) {
	var rows []database.User
	err := s.db.NewSelect().
		Model(&rows).
		Join("JOIN memberships AS m ON m.uid = u.uid").
		Where("m.gid = ?", gid).
		OrderExpr("m.seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, "list members of group")
	}
	out := make([]store.User, 0, len(rows))
	for i := range rows {
		out = append(out, *fromDBUser(&rows[i]))
	}
	return out, nil
}

func toDBGroup(g *store.Group) *database.Group {
	return &database.Group{
		GID:          g.GID,
		Name:         g.Name,
		Location:     g.Location,
		Description:  g.Description,
		Owner:        g.Owner,
		CreationDate: g.CreationDate,
	}
}

func fromDBGroup(row *database.Group) *store.Group {
	return &store.Group{
		GID:          row.GID,
		Name:         row.Name,
		Location:     row.Location,
		Description:  row.Description,
		Owner:        row.Owner,
		CreationDate: row.CreationDate,
	}
}

func fromDBGroups(rows []database.Group) []store.Group {
	out := make([]store.Group, 0, len(rows))
	for i := range rows {
		out = append(out, *fromDBGroup(&rows[i]))
	}
	return out
}
