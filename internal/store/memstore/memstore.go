// Package memstore is an in-process Store implementation backing
// tests (and local/dry-run operation) without a real Postgres
// instance — the teacher's deleted internal/service/cache_service.go
// RWMutex-guarded map pattern, repurposed here for the full event
// store rather than a TTL cache.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"pos-saas/internal/domain"
	"pos-saas/internal/store"
)

type Store struct {
	mu sync.RWMutex

	nextUID  int64
	users    map[int64]domain.User
	byName   map[string]int64
	byEmail  map[string]int64

	nextSID  int64
	sessions map[string]domain.Session
	byToken  map[string]string

	events map[string][]domain.BehavioralEvent // keyed by sid

	profiles map[int64]domain.BehavioralProfile
	bundles  map[int64]domain.ModelBundle

	trustHistory map[string][]domain.TrustHistoryEntry // keyed by sid

	sidLocks sync.Map // sid -> *sync.Mutex, simulates a row lock
}

func New() *Store {
	return &Store{
		users:    map[int64]domain.User{},
		byName:   map[string]int64{},
		byEmail:  map[string]int64{},
		sessions: map[string]domain.Session{},
		byToken:  map[string]string{},
		events:   map[string][]domain.BehavioralEvent{},
		profiles: map[int64]domain.BehavioralProfile{},
		bundles:  map[int64]domain.ModelBundle{},
		trustHistory: map[string][]domain.TrustHistoryEntry{},
	}
}

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[username]; exists {
		return domain.User{}, domain.Conflict("username already registered")
	}
	if _, exists := s.byEmail[email]; exists {
		return domain.User{}, domain.Conflict("email already registered")
	}
	s.nextUID++
	u := domain.User{UID: s.nextUID, Username: username, Email: email, PasswordHash: passwordHash, Active: true, CreatedAt: now()}
	s.users[u.UID] = u
	s.byName[username] = u.UID
	s.byEmail[email] = u.UID
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.byName[username]
	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}
	return s.users[uid], nil
}

func (s *Store) GetUserByID(ctx context.Context, uid int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, uid int64, sessionToken, ip, userAgent string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSID++
	sid := itoa64(s.nextSID)
	t := now()
	sess := domain.Session{
		SID: sid, UID: uid, SessionToken: sessionToken,
		InitialTrust: 1.0, CurrentTrust: 1.0, MinTrustThreshold: 0.3,
		IP: ip, UserAgent: userAgent, LoginTime: t, LastActivity: t, Active: true,
	}
	s.sessions[sid] = sess
	s.byToken[sessionToken] = sid
	return sess, nil
}

func (s *Store) GetActiveSessionByToken(ctx context.Context, sessionToken string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sid, ok := s.byToken[sessionToken]
	if !ok {
		return domain.Session{}, domain.NotFound("session not found")
	}
	sess := s.sessions[sid]
	if !sess.Active {
		return domain.Session{}, domain.Unauthorized("session is not active")
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, sid string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return domain.Session{}, domain.NotFound("session not found")
	}
	return sess, nil
}

func (s *Store) DeactivateSession(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return domain.NotFound("session not found")
	}
	sess.Active = false
	s.sessions[sid] = sess
	return nil
}

func (s *Store) TouchActivity(ctx context.Context, sid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return domain.NotFound("session not found")
	}
	sess.LastActivity = at
	s.sessions[sid] = sess
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, ev domain.BehavioralEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[ev.SID]; !ok {
		return domain.NotFound("session not found")
	}
	s.events[ev.SID] = append(s.events[ev.SID], ev)
	return nil
}

func (s *Store) AllSessionEvents(ctx context.Context, sid string) ([]domain.BehavioralEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.BehavioralEvent(nil), s.events[sid]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) CountUserEvents(ctx context.Context, uid int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for sid, sess := range s.sessions {
		if sess.UID == uid {
			count += len(s.events[sid])
		}
	}
	return count, nil
}

func (s *Store) QualifyingSessionIDs(ctx context.Context, uid int64, minEventsPerSession int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sids []string
	for sid, sess := range s.sessions {
		if sess.UID == uid && len(s.events[sid]) >= minEventsPerSession {
			sids = append(sids, sid)
		}
	}
	sort.Strings(sids)
	return sids, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p domain.BehavioralProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UID] = p
	return nil
}

func (s *Store) GetProfile(ctx context.Context, uid int64) (domain.BehavioralProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	return p, ok, nil
}

func (s *Store) LoadModelBundle(ctx context.Context, uid int64) (domain.ModelBundle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[uid]
	return b, ok, nil
}

func (s *Store) StoreModelBundle(ctx context.Context, bundle domain.ModelBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[bundle.UID] = bundle
	return nil
}

func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.users))
	for uid := range s.users {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) AppendTrustHistory(ctx context.Context, entry domain.TrustHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trustHistory[entry.SID] = append(s.trustHistory[entry.SID], entry)
	return nil
}

func (s *Store) RecentTrustHistory(ctx context.Context, sid string, limit int) ([]domain.TrustHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.trustHistory[sid]
	if len(all) <= limit {
		return append([]domain.TrustHistoryEntry(nil), all...), nil
	}
	return append([]domain.TrustHistoryEntry(nil), all[len(all)-limit:]...), nil
}

func (s *Store) sidLock(sid string) *sync.Mutex {
	l, _ := s.sidLocks.LoadOrStore(sid, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// RunInTrustTxn serializes per-sid via sidLock (the in-memory
// equivalent of a row lock) and hands fn a snapshot taken under that
// lock; UpdateTrust writes back before the lock releases, so the
// later of two concurrent callers always observes the earlier
// writer's result, per spec §5.
func (s *Store) RunInTrustTxn(ctx context.Context, sid string, fn func(store.TrustTxn) error) error {
	lock := s.sidLock(sid)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	sess, ok := s.sessions[sid]
	s.mu.RUnlock()
	if !ok {
		return domain.NotFound("session not found")
	}

	txn := &memTxn{store: s, sid: sid, session: sess}
	return fn(txn)
}

// memTxn implements store.TrustTxn against the in-memory store, under
// the per-sid lock RunInTrustTxn already holds.
type memTxn struct {
	store   *Store
	sid     string
	session domain.Session
}

func (t *memTxn) Session() domain.Session { return t.session }

func (t *memTxn) RecentEvents(since time.Time, limit int) []domain.BehavioralEvent {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	all := t.store.events[t.sid]
	var out []domain.BehavioralEvent
	for _, e := range all {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (t *memTxn) AllEvents() []domain.BehavioralEvent {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := append([]domain.BehavioralEvent(nil), t.store.events[t.sid]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (t *memTxn) RecentUserSessions(since time.Time, limit int) []domain.Session {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	var out []domain.Session
	for _, sess := range t.store.sessions {
		if sess.UID == t.session.UID && !sess.LoginTime.Before(since) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginTime.After(out[j].LoginTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t *memTxn) UpdateTrust(trust float64, active bool, action string, lastActivity time.Time) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	sess, ok := t.store.sessions[t.sid]
	if !ok {
		return domain.NotFound("session not found")
	}
	sess.CurrentTrust = trust
	sess.Active = active
	sess.CurrentAction = action
	sess.LastActivity = lastActivity
	sess.Evaluated = true
	t.store.sessions[t.sid] = sess
	t.session = sess
	return nil
}

func now() time.Time { return time.Now() }

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
