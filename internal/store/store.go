// Package store defines the event-store contract (component A, spec
// §4.1): users, sessions, the append-only behavioral-event log,
// profiles, and model bundles, plus the snapshot-consistent
// transaction boundary the trust engine reads and writes through.
//
// Two implementations live under this module: store/postgres (the
// production store, adapted from the teacher's repository layer) and
// store/memstore (an in-process fake used by tests and by the trainer
// CLI's dry-run mode).
package store

import (
	"context"
	"time"

	"pos-saas/internal/domain"
)

type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByID(ctx context.Context, uid int64) (domain.User, error)

	CreateSession(ctx context.Context, uid int64, sessionToken, ip, userAgent string) (domain.Session, error)
	GetActiveSessionByToken(ctx context.Context, sessionToken string) (domain.Session, error)
	GetSession(ctx context.Context, sid string) (domain.Session, error)
	DeactivateSession(ctx context.Context, sid string) error
	TouchActivity(ctx context.Context, sid string, at time.Time) error

	AppendEvent(ctx context.Context, ev domain.BehavioralEvent) error
	AllSessionEvents(ctx context.Context, sid string) ([]domain.BehavioralEvent, error)
	CountUserEvents(ctx context.Context, uid int64) (int, error)
	QualifyingSessionIDs(ctx context.Context, uid int64, minEventsPerSession int) ([]string, error)

	UpsertProfile(ctx context.Context, p domain.BehavioralProfile) error
	GetProfile(ctx context.Context, uid int64) (domain.BehavioralProfile, bool, error)

	LoadModelBundle(ctx context.Context, uid int64) (domain.ModelBundle, bool, error)
	StoreModelBundle(ctx context.Context, bundle domain.ModelBundle) error

	// RunInTrustTxn gives the trust engine a snapshot-consistent view
	// of a session plus its owning user's recent history, and a
	// single atomic write-back point. Implementations serialize
	// concurrent calls for the same sid (row lock or equivalent),
	// spec §5.
	RunInTrustTxn(ctx context.Context, sid string, fn func(TrustTxn) error) error

	// AllUserIDs supports the standalone trainer entry point that
	// "scans all users and trains missing models", spec §6.
	AllUserIDs(ctx context.Context) ([]int64, error)

	// AppendTrustHistory and RecentTrustHistory back the supplemented
	// GET /api/trust/history/{session_id} endpoint (SPEC_FULL.md §3);
	// best-effort, not part of the trust-engine transaction.
	AppendTrustHistory(ctx context.Context, entry domain.TrustHistoryEntry) error
	RecentTrustHistory(ctx context.Context, sid string, limit int) ([]domain.TrustHistoryEntry, error)
}

// TrustTxn is the narrow read/write surface the trust engine uses
// inside one snapshot-consistent transaction.
type TrustTxn interface {
	Session() domain.Session
	// RecentEvents returns up to limit of the session's own events at
	// or after since, oldest first.
	RecentEvents(since time.Time, limit int) []domain.BehavioralEvent
	// AllEvents returns every event of the session in time order, for
	// the session aggregator (component D).
	AllEvents() []domain.BehavioralEvent
	// RecentUserSessions returns up to limit of the owning user's
	// sessions (this one included) with login_time at or after since,
	// most recent first.
	RecentUserSessions(since time.Time, limit int) []domain.Session
	// UpdateTrust writes the new current_trust/active/action/
	// last_activity back to the session row within the same
	// transaction the reads above came from.
	UpdateTrust(trust float64, active bool, action string, lastActivity time.Time) error
}
