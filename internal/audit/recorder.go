// Package audit appends entries to the audit log. A failed write is logged
// and never fails the action being audited.
package audit

import (
	"context"
	"time"

	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
)

type Writer interface {
	AddAudit(ctx context.Context, a *store.AuditEntry) error
}

type Recorder struct {
	writer Writer
	now    func() time.Time
}

func NewRecorder(w Writer) *Recorder {
	return &Recorder{writer: w, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Recorder) Record(ctx context.Context, typ string, data map[string]any) {
	entry := &store.AuditEntry{Date: r.now(), Type: typ, Data: data}
	if err := r.writer.AddAudit(ctx, entry); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to write audit entry", "type", typ, "error", err)
	}
}
