package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"pos-saas/internal/domain"
	"pos-saas/internal/store"
)

// RunInTrustTxn opens one sql.Tx, takes a real row lock on the
// session via SELECT ... FOR UPDATE, and hands the trust engine a
// snapshot-consistent view for the lifetime of fn — the production
// equivalent of memstore's per-sid sync.Mutex (spec §5).
func (s *Store) RunInTrustTxn(ctx context.Context, sid string, fn func(store.TrustTxn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal("failed to begin trust transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var sess domain.Session
	err = tx.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM user_sessions WHERE sid = $1 FOR UPDATE`, sid).Scan(
		&sess.SID, &sess.UID, &sess.SessionToken, &sess.InitialTrust, &sess.CurrentTrust, &sess.MinTrustThreshold,
		&sess.IP, &sess.UserAgent, &sess.LoginTime, &sess.LastActivity, &sess.Active, &sess.CurrentAction, &sess.Evaluated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("session not found")
	}
	if err != nil {
		return domain.Internal("failed to lock session row", err)
	}

	txn := &pgTxn{tx: tx, sid: sid, session: sess}
	if err := fn(txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.Internal("failed to commit trust transaction", err)
	}
	committed = true
	return nil
}

type pgTxn struct {
	tx      *sql.Tx
	sid     string
	session domain.Session
}

func (t *pgTxn) Session() domain.Session { return t.session }

func (t *pgTxn) RecentEvents(since time.Time, limit int) []domain.BehavioralEvent {
	rows, err := t.tx.QueryContext(context.Background(), `
		SELECT event_id, sid, kind, processed_features, anomaly_score, is_anomalous, recorded_at
		FROM behavioral_events WHERE sid = $1 AND recorded_at >= $2
		ORDER BY recorded_at DESC LIMIT $3
	`, t.sid, since, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out, err := scanEvents(rows)
	if err != nil {
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (t *pgTxn) AllEvents() []domain.BehavioralEvent {
	rows, err := t.tx.QueryContext(context.Background(), `
		SELECT event_id, sid, kind, processed_features, anomaly_score, is_anomalous, recorded_at
		FROM behavioral_events WHERE sid = $1 ORDER BY recorded_at ASC
	`, t.sid)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out, _ := scanEvents(rows)
	return out
}

func (t *pgTxn) RecentUserSessions(since time.Time, limit int) []domain.Session {
	rows, err := t.tx.QueryContext(context.Background(), `
		SELECT `+sessionCols+` FROM user_sessions
		WHERE uid = $1 AND login_time >= $2
		ORDER BY login_time DESC LIMIT $3
	`, t.session.UID, since, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(
			&sess.SID, &sess.UID, &sess.SessionToken, &sess.InitialTrust, &sess.CurrentTrust, &sess.MinTrustThreshold,
			&sess.IP, &sess.UserAgent, &sess.LoginTime, &sess.LastActivity, &sess.Active, &sess.CurrentAction, &sess.Evaluated,
		); err != nil {
			return out
		}
		out = append(out, sess)
	}
	return out
}

func (t *pgTxn) UpdateTrust(trust float64, active bool, action string, lastActivity time.Time) error {
	_, err := t.tx.ExecContext(context.Background(), `
		UPDATE user_sessions SET current_trust = $1, active = $2, current_action = $3, last_activity = $4, evaluated = TRUE
		WHERE sid = $5
	`, trust, active, action, lastActivity, t.sid)
	if err != nil {
		return domain.Internal("failed to write back trust", err)
	}
	t.session.CurrentTrust = trust
	t.session.Active = active
	t.session.CurrentAction = action
	t.session.LastActivity = lastActivity
	t.session.Evaluated = true
	return nil
}
