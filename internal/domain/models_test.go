package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelForTrust(t *testing.T) {
	cases := []struct {
		trust float64
		want  TrustLevel
	}{
		{0.0, TrustCritical},
		{0.19, TrustCritical},
		{0.2, TrustLow},
		{0.39, TrustLow},
		{0.4, TrustModerate},
		{0.59, TrustModerate},
		{0.6, TrustHigh},
		{0.79, TrustHigh},
		{0.8, TrustMaximum},
		{1.0, TrustMaximum},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LevelForTrust(c.trust), "trust=%v", c.trust)
	}
}

func TestActionForLevel(t *testing.T) {
	assert.Equal(t, ActionTerminateSession, ActionForLevel(TrustCritical))
	assert.Equal(t, ActionRequireReauth, ActionForLevel(TrustLow))
	assert.Equal(t, ActionRestrictAccess, ActionForLevel(TrustModerate))
	assert.Equal(t, ActionIncreaseMonitoring, ActionForLevel(TrustHigh))
	assert.Equal(t, ActionNone, ActionForLevel(TrustMaximum))
}

func TestFallbackTrustResult(t *testing.T) {
	r := FallbackTrustResult("timeout")
	assert.Equal(t, 0.5, r.TrustScore)
	assert.Equal(t, TrustModerate, r.Level)
	assert.Equal(t, ActionIncreaseMonitoring, r.Action)
	assert.Equal(t, TrendStable, r.Trend)
	assert.Equal(t, "timeout", r.Error)
}

func TestProfileConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ProfileConfidence(0))
	assert.Equal(t, 0.5, ProfileConfidence(50))
	assert.Equal(t, 1.0, ProfileConfidence(100))
	assert.Equal(t, 1.0, ProfileConfidence(500))
}

func TestSessionIsUsable(t *testing.T) {
	now := time.Now()
	active := Session{Active: true, LoginTime: now.Add(-1 * time.Hour)}
	assert.True(t, active.IsUsable(now))

	expired := Session{Active: true, LoginTime: now.Add(-25 * time.Hour)}
	assert.False(t, expired.IsUsable(now))

	inactive := Session{Active: false, LoginTime: now}
	assert.False(t, inactive.IsUsable(now))
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	u := User{PasswordHash: hash}
	assert.True(t, u.CheckPassword("correct horse battery staple"))
	assert.False(t, u.CheckPassword("wrong password"))
}
