package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-saas/internal/config"
	"pos-saas/internal/domain"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store/memstore"
	"pos-saas/internal/trust"
)

func newTestVerifier(st *memstore.Store) *Verifier {
	cfg := config.EngineConfig{
		TrustWeights: config.TrustWeights{Behavioral: 0.4, Temporal: 0.2, Context: 0.15, Historical: 0.15, AnomalyFreq: 0.1},
		Decay:        config.Decay{IdleDecayRate: 0.05, AnomalyDecayRate: 0.15, RecoveryRate: 0.02, MaxDecayPerUpdate: 0.2},
	}
	engine := trust.New(st, predictorcache.New(st), cfg)
	return New(st, engine)
}

func TestVerifySessionToken_Unknown(t *testing.T) {
	st := memstore.New()
	v := newTestVerifier(st)
	_, err := v.VerifySessionToken(context.Background(), "no-such-token")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestVerifySessionToken_Active(t *testing.T) {
	st := memstore.New()
	u, err := st.CreateUser(context.Background(), "bob", "bob@example.com", "hash")
	require.NoError(t, err)
	sess, err := st.CreateSession(context.Background(), u.UID, "tok-bob", "127.0.0.1", "ua")
	require.NoError(t, err)

	v := newTestVerifier(st)
	got, err := v.VerifySessionToken(context.Background(), sess.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, sess.SID, got.SID)
}

func TestVerifySessionToken_DeactivatedRejected(t *testing.T) {
	st := memstore.New()
	u, err := st.CreateUser(context.Background(), "carol", "carol@example.com", "hash")
	require.NoError(t, err)
	sess, err := st.CreateSession(context.Background(), u.UID, "tok-carol", "127.0.0.1", "ua")
	require.NoError(t, err)
	require.NoError(t, st.DeactivateSession(context.Background(), sess.SID))

	v := newTestVerifier(st)
	_, err = v.VerifySessionToken(context.Background(), sess.SessionToken)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestVerifyTrustLevel(t *testing.T) {
	v := &Verifier{}
	above := domain.Session{CurrentTrust: 0.5, MinTrustThreshold: 0.3}
	verified, action := v.VerifyTrustLevel(above, domain.ActionRestrictAccess)
	assert.True(t, verified)
	assert.Equal(t, domain.ActionNone, action)

	below := domain.Session{CurrentTrust: 0.2, MinTrustThreshold: 0.3}
	verified, action = v.VerifyTrustLevel(below, domain.ActionRestrictAccess)
	assert.False(t, verified)
	assert.Equal(t, domain.ActionRestrictAccess, action)
}

func TestContinuousVerification_TouchesActivityAndEvaluates(t *testing.T) {
	st := memstore.New()
	u, err := st.CreateUser(context.Background(), "dave", "dave@example.com", "hash")
	require.NoError(t, err)
	sess, err := st.CreateSession(context.Background(), u.UID, "tok-dave", "127.0.0.1", "ua")
	require.NoError(t, err)
	before := sess.LastActivity

	v := newTestVerifier(st)
	_, result, err := v.ContinuousVerification(context.Background(), sess.SessionToken)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Level)
	assert.True(t, result.Verified, "fresh session's trust should clear its default min_trust_threshold")

	after, err := st.GetSession(context.Background(), sess.SID)
	require.NoError(t, err)
	assert.True(t, after.LastActivity.After(before) || after.LastActivity.Equal(before))
	assert.True(t, after.Evaluated)
}
