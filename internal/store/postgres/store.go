// Package postgres is the production store.Store implementation,
// adapted from the teacher's internal/repository/*.go query style
// (database/sql + lib/pq, $N placeholders, sql.ErrNoRows mapped to a
// domain error) onto this module's session/event/profile/bundle
// schema.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"pos-saas/internal/domain"
	"pos-saas/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING uid, username, email, password_hash, active, created_at
	`, username, email, passwordHash).Scan(&u.UID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.User{}, domain.Conflict("username or email already registered")
	}
	if err != nil {
		return domain.User{}, domain.Internal("failed to create user", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, username, email, password_hash, active, created_at FROM users WHERE username = $1
	`, username).Scan(&u.UID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFound("user not found")
	}
	if err != nil {
		return domain.User{}, domain.Internal("failed to fetch user", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, uid int64) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, username, email, password_hash, active, created_at FROM users WHERE uid = $1
	`, uid).Scan(&u.UID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFound("user not found")
	}
	if err != nil {
		return domain.User{}, domain.Internal("failed to fetch user", err)
	}
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, uid int64, sessionToken, ip, userAgent string) (domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user_sessions (sid, uid, session_token, initial_trust, current_trust, min_trust_threshold, ip, user_agent, login_time, last_activity, active)
		VALUES (gen_random_uuid()::text, $1, $2, 1.0, 1.0, 0.3, $3, $4, NOW(), NOW(), TRUE)
		RETURNING sid, uid, session_token, initial_trust, current_trust, min_trust_threshold, ip, user_agent, login_time, last_activity, active, current_action, evaluated
	`, uid, sessionToken, ip, userAgent).Scan(
		&sess.SID, &sess.UID, &sess.SessionToken, &sess.InitialTrust, &sess.CurrentTrust, &sess.MinTrustThreshold,
		&sess.IP, &sess.UserAgent, &sess.LoginTime, &sess.LastActivity, &sess.Active, &sess.CurrentAction, &sess.Evaluated,
	)
	if err != nil {
		return domain.Session{}, domain.Internal("failed to create session", err)
	}
	return sess, nil
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var sess domain.Session
	err := row.Scan(
		&sess.SID, &sess.UID, &sess.SessionToken, &sess.InitialTrust, &sess.CurrentTrust, &sess.MinTrustThreshold,
		&sess.IP, &sess.UserAgent, &sess.LoginTime, &sess.LastActivity, &sess.Active, &sess.CurrentAction, &sess.Evaluated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.NotFound("session not found")
	}
	if err != nil {
		return domain.Session{}, domain.Internal("failed to fetch session", err)
	}
	return sess, nil
}

const sessionCols = `sid, uid, session_token, initial_trust, current_trust, min_trust_threshold, ip, user_agent, login_time, last_activity, active, current_action, evaluated`

func (s *Store) GetActiveSessionByToken(ctx context.Context, sessionToken string) (domain.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM user_sessions WHERE session_token = $1`, sessionToken))
	if err != nil {
		return domain.Session{}, err
	}
	if !sess.Active {
		return domain.Session{}, domain.Unauthorized("session is not active")
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, sid string) (domain.Session, error) {
	return scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM user_sessions WHERE sid = $1`, sid))
}

func (s *Store) DeactivateSession(ctx context.Context, sid string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_sessions SET active = FALSE WHERE sid = $1`, sid)
	if err != nil {
		return domain.Internal("failed to deactivate session", err)
	}
	return requireRowsAffected(res, "session not found")
}

func (s *Store) TouchActivity(ctx context.Context, sid string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_sessions SET last_activity = $1 WHERE sid = $2`, at, sid)
	if err != nil {
		return domain.Internal("failed to touch activity", err)
	}
	return requireRowsAffected(res, "session not found")
}

func (s *Store) AppendEvent(ctx context.Context, ev domain.BehavioralEvent) error {
	features, err := json.Marshal(ev.ProcessedFeatures)
	if err != nil {
		return domain.Internal("failed to encode features", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO behavioral_events (event_id, sid, kind, processed_features, anomaly_score, is_anomalous, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.EID, ev.SID, string(ev.Kind), features, ev.AnomalyScore, ev.IsAnomalous, ev.Timestamp)
	if isForeignKeyViolation(err) {
		return domain.NotFound("session not found")
	}
	if err != nil {
		return domain.Internal("failed to append event", err)
	}
	return nil
}

func (s *Store) AllSessionEvents(ctx context.Context, sid string) ([]domain.BehavioralEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, sid, kind, processed_features, anomaly_score, is_anomalous, recorded_at
		FROM behavioral_events WHERE sid = $1 ORDER BY recorded_at ASC
	`, sid)
	if err != nil {
		return nil, domain.Internal("failed to query events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.BehavioralEvent, error) {
	var out []domain.BehavioralEvent
	for rows.Next() {
		var ev domain.BehavioralEvent
		var kind string
		var features []byte
		if err := rows.Scan(&ev.EID, &ev.SID, &kind, &features, &ev.AnomalyScore, &ev.IsAnomalous, &ev.Timestamp); err != nil {
			return nil, domain.Internal("failed to scan event", err)
		}
		ev.Kind = domain.EventKind(kind)
		if err := json.Unmarshal(features, &ev.ProcessedFeatures); err != nil {
			return nil, domain.Internal("failed to decode features", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("row iteration error", err)
	}
	return out, nil
}

func (s *Store) CountUserEvents(ctx context.Context, uid int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM behavioral_events e JOIN user_sessions s ON s.sid = e.sid WHERE s.uid = $1
	`, uid).Scan(&count)
	if err != nil {
		return 0, domain.Internal("failed to count events", err)
	}
	return count, nil
}

func (s *Store) QualifyingSessionIDs(ctx context.Context, uid int64, minEventsPerSession int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.sid FROM user_sessions s
		JOIN behavioral_events e ON e.sid = s.sid
		WHERE s.uid = $1
		GROUP BY s.sid
		HAVING COUNT(*) >= $2
		ORDER BY s.sid
	`, uid, minEventsPerSession)
	if err != nil {
		return nil, domain.Internal("failed to query qualifying sessions", err)
	}
	defer rows.Close()
	var sids []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, domain.Internal("failed to scan sid", err)
		}
		sids = append(sids, sid)
	}
	return sids, rows.Err()
}

func (s *Store) UpsertProfile(ctx context.Context, p domain.BehavioralProfile) error {
	ksMean, _ := json.Marshal(p.KeystrokeMean)
	ksStd, _ := json.Marshal(p.KeystrokeStd)
	msMean, _ := json.Marshal(p.PointerMean)
	msStd, _ := json.Marshal(p.PointerStd)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO behavioral_profiles (uid, samples_count, confidence, keystroke_mean, keystroke_std, pointer_mean, pointer_std, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uid) DO UPDATE SET
			samples_count = EXCLUDED.samples_count,
			confidence = EXCLUDED.confidence,
			keystroke_mean = EXCLUDED.keystroke_mean,
			keystroke_std = EXCLUDED.keystroke_std,
			pointer_mean = EXCLUDED.pointer_mean,
			pointer_std = EXCLUDED.pointer_std,
			last_updated = EXCLUDED.last_updated
	`, p.UID, p.SamplesCount, p.Confidence, ksMean, ksStd, msMean, msStd, p.LastUpdated)
	if err != nil {
		return domain.Internal("failed to upsert profile", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, uid int64) (domain.BehavioralProfile, bool, error) {
	var p domain.BehavioralProfile
	var ksMean, ksStd, msMean, msStd []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, samples_count, confidence, keystroke_mean, keystroke_std, pointer_mean, pointer_std, last_updated
		FROM behavioral_profiles WHERE uid = $1
	`, uid).Scan(&p.UID, &p.SamplesCount, &p.Confidence, &ksMean, &ksStd, &msMean, &msStd, &p.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BehavioralProfile{}, false, nil
	}
	if err != nil {
		return domain.BehavioralProfile{}, false, domain.Internal("failed to fetch profile", err)
	}
	_ = json.Unmarshal(ksMean, &p.KeystrokeMean)
	_ = json.Unmarshal(ksStd, &p.KeystrokeStd)
	_ = json.Unmarshal(msMean, &p.PointerMean)
	_ = json.Unmarshal(msStd, &p.PointerStd)
	return p, true, nil
}

func (s *Store) LoadModelBundle(ctx context.Context, uid int64) (domain.ModelBundle, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT bundle FROM model_bundles WHERE uid = $1`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ModelBundle{}, false, nil
	}
	if err != nil {
		return domain.ModelBundle{}, false, domain.Internal("failed to load model bundle", err)
	}
	var bundle domain.ModelBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return domain.ModelBundle{}, false, domain.Internal("failed to decode model bundle", err)
	}
	return bundle, true, nil
}

func (s *Store) StoreModelBundle(ctx context.Context, bundle domain.ModelBundle) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return domain.Internal("failed to encode model bundle", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_bundles (uid, version, bundle, sample_count, trained_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uid) DO UPDATE SET version = EXCLUDED.version, bundle = EXCLUDED.bundle, sample_count = EXCLUDED.sample_count, trained_at = EXCLUDED.trained_at
	`, bundle.UID, bundle.Version, raw, bundle.SampleCount, bundle.TrainedAt)
	if err != nil {
		return domain.Internal("failed to store model bundle", err)
	}
	return nil
}

func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid FROM users ORDER BY uid`)
	if err != nil {
		return nil, domain.Internal("failed to list users", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, domain.Internal("failed to scan uid", err)
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (s *Store) AppendTrustHistory(ctx context.Context, entry domain.TrustHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trust_history (sid, trust_score, level, action, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.SID, entry.TrustScore, string(entry.Level), string(entry.Action), entry.RecordedAt)
	if err != nil {
		return domain.Internal("failed to append trust history", err)
	}
	return nil
}

func (s *Store) RecentTrustHistory(ctx context.Context, sid string, limit int) ([]domain.TrustHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sid, trust_score, level, action, recorded_at FROM trust_history
		WHERE sid = $1 ORDER BY recorded_at DESC LIMIT $2
	`, sid, limit)
	if err != nil {
		return nil, domain.Internal("failed to query trust history", err)
	}
	defer rows.Close()
	var out []domain.TrustHistoryEntry
	for rows.Next() {
		var e domain.TrustHistoryEntry
		var level, action string
		if err := rows.Scan(&e.SID, &e.TrustScore, &level, &action, &e.RecordedAt); err != nil {
			return nil, domain.Internal("failed to scan trust history row", err)
		}
		e.Level, e.Action = domain.TrustLevel(level), domain.SecurityAction(action)
		out = append(out, e)
	}
	// RecentTrustHistory's contract (matched by memstore) returns
	// oldest-first; the query above fetches newest-first to apply
	// LIMIT against the tail of the timeline, so reverse it back.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func requireRowsAffected(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Internal("failed to read rows affected", err)
	}
	if n == 0 {
		return domain.NotFound(notFoundMsg)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return pqErrorCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pqErrorCode(err) == "23503"
}

// pqErrorCode extracts a Postgres error code, or "" for anything that
// isn't a *pq.Error (including nil).
func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

var _ store.Store = (*Store)(nil)
