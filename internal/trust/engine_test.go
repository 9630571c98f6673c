package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-saas/internal/config"
	"pos-saas/internal/domain"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store/memstore"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		TrustWeights: config.TrustWeights{Behavioral: 0.4, Temporal: 0.2, Context: 0.15, Historical: 0.15, AnomalyFreq: 0.1},
		Decay:        config.Decay{IdleDecayRate: 0.05, AnomalyDecayRate: 0.15, RecoveryRate: 0, MaxDecayPerUpdate: 0.1},
	}
}

func newTestSession(t *testing.T, st *memstore.Store) domain.Session {
	t.Helper()
	ctx := context.Background()
	u, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	sess, err := st.CreateSession(ctx, u.UID, "tok-"+u.Username, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	return sess
}

func appendAnomalousEvent(t *testing.T, st *memstore.Store, sid string, ts time.Time) {
	t.Helper()
	require.NoError(t, st.AppendEvent(context.Background(), domain.BehavioralEvent{
		EID: ts.Format(time.RFC3339Nano), SID: sid, Kind: domain.EventKeystroke,
		ProcessedFeatures: map[string]float64{"ks_dwell_mean": 1},
		Timestamp:         ts,
		IsAnomalous:       true,
	}))
}

func TestEvaluate_UnknownSession(t *testing.T) {
	st := memstore.New()
	e := New(st, predictorcache.New(st), testEngineConfig())
	result := e.Evaluate(context.Background(), "does-not-exist")
	assert.Equal(t, "session_not_found", result.Error)
	assert.Equal(t, domain.TrustModerate, result.Level)
	assert.Equal(t, domain.ActionIncreaseMonitoring, result.Action)
}

func TestEvaluate_InactiveSession(t *testing.T) {
	st := memstore.New()
	sess := newTestSession(t, st)
	require.NoError(t, st.DeactivateSession(context.Background(), sess.SID))

	e := New(st, predictorcache.New(st), testEngineConfig())
	result := e.Evaluate(context.Background(), sess.SID)
	assert.Equal(t, "session_inactive", result.Error)
	assert.Equal(t, domain.TrustModerate, result.Level)
}

func TestEvaluate_AppendsTrustHistory(t *testing.T) {
	st := memstore.New()
	sess := newTestSession(t, st)
	e := New(st, predictorcache.New(st), testEngineConfig())

	e.Evaluate(context.Background(), sess.SID)
	hist, err := st.RecentTrustHistory(context.Background(), sess.SID, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, sess.SID, hist[0].SID)
}

// TestEvaluate_FirstPassUnclamped pins down the one-session, no-model,
// no-events baseline: with no trained model the behavioral component
// is always the neutral 0.5 (no_model), so raw is fully determined by
// the other four components — temporal's <5-sample branch (0.7),
// context's zero-events bucket (0.7*0.6=0.42), historical pulled to
// 1.0 by the session's own initial_trust=1.0 row, and an empty
// anomaly-frequency window (1.0) — giving raw = 0.4*0.5 + 0.2*0.7 +
// 0.15*0.42 + 0.15*1.0 + 0.1*1.0 = 0.653. Because the session has never
// been evaluated before, this lands unclamped.
func TestEvaluate_FirstPassUnclamped(t *testing.T) {
	st := memstore.New()
	sess := newTestSession(t, st)
	e := New(st, predictorcache.New(st), testEngineConfig())

	r1 := e.Evaluate(context.Background(), sess.SID)
	require.Empty(t, r1.Error)
	assert.Equal(t, domain.TrustHigh, r1.Level)
	assert.Equal(t, domain.ActionIncreaseMonitoring, r1.Action)
	assert.InDelta(t, 0.653, r1.TrustScore, 0.01)

	after, err := st.GetSession(context.Background(), sess.SID)
	require.NoError(t, err)
	assert.True(t, after.Evaluated)
}

// TestEvaluate_DecayCapClipsSecondPass follows up the first-pass
// baseline above with six heavily anomalous, unevenly spaced events
// (gaps [10,10,10,15,5]s, mean 10, population variance 10) which pin
// temporal at exactly 1/(1+10/10) = 0.5 and anomaly_freq at exactly 0.
// The resulting raw sits in MODERATE territory but far enough below
// (first-pass trust - max_per_update) that the decay cap must clip the
// stored trust up to that floor rather than let it fall straight to
// raw, per SPEC_FULL.md's trust_decay wiring.
func TestEvaluate_DecayCapClipsSecondPass(t *testing.T) {
	st := memstore.New()
	sess := newTestSession(t, st)
	cfg := testEngineConfig()
	e := New(st, predictorcache.New(st), cfg)
	ctx := context.Background()

	r1 := e.Evaluate(ctx, sess.SID)
	require.Empty(t, r1.Error)
	afterFirst, err := st.GetSession(ctx, sess.SID)
	require.NoError(t, err)
	trust1 := afterFirst.CurrentTrust

	base := time.Now().Add(-60 * time.Second)
	for _, off := range []time.Duration{0, 10 * time.Second, 20 * time.Second, 30 * time.Second, 45 * time.Second, 50 * time.Second} {
		appendAnomalousEvent(t, st, sess.SID, base.Add(off))
	}

	r2 := e.Evaluate(ctx, sess.SID)
	require.Empty(t, r2.Error)
	assert.Equal(t, domain.TrustModerate, r2.Level)
	assert.Equal(t, domain.ActionRestrictAccess, r2.Action)

	wantFloor := trust1 - cfg.Decay.MaxDecayPerUpdate
	assert.InDelta(t, wantFloor, r2.TrustScore, 0.015)
}

// TestEvaluate_RequireReauthClampsToPointThree drives a second pass
// toward the LOW band using a single batch of six anomalous events
// with a heavily skewed gap sequence (gaps [1,1,1,1,100]s), which push
// temporal down to roughly 0.013 and anomaly_freq to exactly 0. The
// resulting raw lands below the require_reauth boundary regardless of
// the decay cap, and the engine's reauth clause caps trustScore at 0.3
// rather than applying the (much looser) decay-cap band.
func TestEvaluate_RequireReauthClampsToPointThree(t *testing.T) {
	st := memstore.New()
	sess := newTestSession(t, st)
	e := New(st, predictorcache.New(st), testEngineConfig())
	ctx := context.Background()

	r1 := e.Evaluate(ctx, sess.SID)
	require.Empty(t, r1.Error)

	base := time.Now().Add(-130 * time.Second)
	for _, off := range []time.Duration{0, 1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second, 104 * time.Second} {
		appendAnomalousEvent(t, st, sess.SID, base.Add(off))
	}

	r2 := e.Evaluate(ctx, sess.SID)
	require.Empty(t, r2.Error)
	assert.Equal(t, domain.TrustLow, r2.Level)
	assert.Equal(t, domain.ActionRequireReauth, r2.Action)
	assert.LessOrEqual(t, r2.TrustScore, 0.3+1e-9)
	assert.Greater(t, r2.TrustScore, 0.25)
}
