package postgres

import (
	"context"

	"pos-saas/internal/audit"
	"pos-saas/internal/domain"
)

// AuditWriter persists audit.Entry batches to audit_log, the
// production audit.Writer grounded on the teacher's audit_log.go
// flushLocked-into-a-batch-insert pattern, adapted to this domain's
// sid/uid columns in place of the teacher's tenant scoping.
type AuditWriter struct {
	db *Store
}

func NewAuditWriter(db *Store) *AuditWriter {
	return &AuditWriter{db: db}
}

func (w *AuditWriter) InsertEntries(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := w.db.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal("failed to begin audit batch", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_log (sid, uid, action, reason, trust_score, ip_address, user_agent, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		_ = tx.Rollback()
		return domain.Internal("failed to prepare audit insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.SID, e.UID, e.Action, e.Reason, e.TrustScore, e.IPAddress, e.UserAgent, e.Status, e.ErrorMessage, e.CreatedAt); err != nil {
			_ = tx.Rollback()
			return domain.Internal("failed to insert audit entry", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Internal("failed to commit audit batch", err)
	}
	return nil
}
