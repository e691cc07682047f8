package postgres

import (
	"context"

	"github.com/redmonkez12/meetos/internal/database"
	"github.com/redmonkez12/meetos/internal/store"
)

func (s *Store) AddAudit(ctx context.Context, a *store.AuditEntry) error {
	row := &database.Audit{Date: a.Date, Type: a.Type, Data: a.Data}
	if row.Data == nil {
		row.Data = map[string]any{}
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapError(err, "add audit entry")
	}
	a.ID = row.ID
	return nil
}

func (s *Store) ListAudit(ctx context.Context) ([]store.AuditEntry, error) {
	var rows []database.Audit
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError(err, "list audit entries")
	}
	out := make([]store.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.AuditEntry{ID: row.ID, Date: row.Date, Type: row.Type, Data: row.Data})
	}
	return out, nil
}
