// Package domain holds the entities the behavioral-trust core operates
// over: users, sessions, the append-only event log, and the trained
// per-user model artifact.
package domain

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	UID          int64     `json:"uid"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckPassword reports whether password matches the user's stored
// bcrypt hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type EventKind string

const (
	EventKeystroke EventKind = "keystroke"
	EventPointer   EventKind = "pointer"
)

// Session is an authenticated, per-user conversation bounded by login
// and termination. Once a session has been evaluated, current_trust
// moves under the trust engine's max-decay-per-update cap, except on
// TERMINATE_SESSION and REQUIRE_REAUTH results; see internal/trust.
type Session struct {
	SID               string    `json:"sid"`
	UID               int64     `json:"uid"`
	SessionToken      string    `json:"-"`
	InitialTrust      float64   `json:"initial_trust"`
	CurrentTrust      float64   `json:"current_trust"`
	MinTrustThreshold float64   `json:"min_trust_threshold"`
	IP                string    `json:"ip,omitempty"`
	UserAgent         string    `json:"user_agent,omitempty"`
	LoginTime         time.Time `json:"login_time"`
	LastActivity      time.Time `json:"last_activity"`
	Active            bool      `json:"active"`
	// CurrentAction records the most recent security action the trust
	// engine recommended; advisory only (see SPEC_FULL.md §0.4) — no
	// authorization boundary consults it yet.
	CurrentAction string `json:"current_action,omitempty"`
	// Evaluated is true once the trust engine has written a real
	// computed score at least once. The max_decay_per_update cap
	// (SPEC_FULL.md §0.3) only constrains the delta between two real
	// computed scores — it does not apply to the very first
	// evaluation away from the synthetic initial_trust=1.0 default.
	Evaluated bool `json:"-"`
}

const SessionMaxAge = 24 * time.Hour

// IsUsable reports whether the session may still be evaluated: active
// and within the 24h age cap.
func (s *Session) IsUsable(now time.Time) bool {
	return s.Active && now.Sub(s.LoginTime) <= SessionMaxAge
}

// BehavioralEvent is one append-only record of a processed event
// batch. ProcessedFeatures holds the per-event map the keystroke or
// pointer extractor produced; stores keep and return its keys as
// given, and no key is filtered out on read.
type BehavioralEvent struct {
	EID               string            `json:"eid"`
	SID               string            `json:"sid"`
	Kind              EventKind         `json:"kind"`
	RawData           []byte            `json:"-"`
	ProcessedFeatures map[string]float64 `json:"processed_features"`
	Timestamp         time.Time         `json:"timestamp"`
	AnomalyScore      *float64          `json:"anomaly_score,omitempty"`
	IsAnomalous       bool              `json:"is_anomalous"`
}

// BehavioralProfile is the per-user rollup rewritten whenever the
// user's model is retrained.
type BehavioralProfile struct {
	UID           int64     `json:"uid"`
	SamplesCount  int       `json:"samples_count"`
	Confidence    float64   `json:"confidence"`
	KeystrokeMean map[string]float64 `json:"keystroke_mean"`
	KeystrokeStd  map[string]float64 `json:"keystroke_std"`
	PointerMean   map[string]float64 `json:"pointer_mean"`
	PointerStd    map[string]float64 `json:"pointer_std"`
	LastUpdated   time.Time `json:"last_updated"`
}

// ProfileConfidence implements the spec's confidence = min(samples/100, 1).
func ProfileConfidence(samples int) float64 {
	c := float64(samples) / 100.0
	if c > 1 {
		c = 1
	}
	return c
}

type TrustLevel string

const (
	TrustCritical TrustLevel = "critical"
	TrustLow      TrustLevel = "low"
	TrustModerate TrustLevel = "moderate"
	TrustHigh     TrustLevel = "high"
	TrustMaximum  TrustLevel = "maximum"
)

type SecurityAction string

const (
	ActionTerminateSession    SecurityAction = "terminate_session"
	ActionRequireReauth       SecurityAction = "require_reauth"
	ActionRestrictAccess      SecurityAction = "restrict_access"
	ActionIncreaseMonitoring  SecurityAction = "increase_monitoring"
	ActionNone                SecurityAction = "no_action"
)

// LevelForTrust implements the spec §4.7 level mapping.
func LevelForTrust(t float64) TrustLevel {
	switch {
	case t >= 0.8:
		return TrustMaximum
	case t >= 0.6:
		return TrustHigh
	case t >= 0.4:
		return TrustModerate
	case t >= 0.2:
		return TrustLow
	default:
		return TrustCritical
	}
}

// ActionForLevel implements the spec §4.7 action mapping.
func ActionForLevel(l TrustLevel) SecurityAction {
	switch l {
	case TrustCritical:
		return ActionTerminateSession
	case TrustLow:
		return ActionRequireReauth
	case TrustModerate:
		return ActionRestrictAccess
	case TrustHigh:
		return ActionIncreaseMonitoring
	case TrustMaximum:
		return ActionNone
	default:
		return ActionIncreaseMonitoring
	}
}

type TrustTrend string

const (
	TrendStable      TrustTrend = "stable"
	TrendIncreasing  TrustTrend = "increasing"
	TrendDecreasing  TrustTrend = "decreasing"
)

// TrustResult is the shape returned from every trust computation,
// including the recovered-fallback path (§4.7 error posture).
type TrustResult struct {
	TrustScore float64             `json:"trust_score"`
	Level      TrustLevel          `json:"level"`
	Action     SecurityAction      `json:"action"`
	Trend      TrustTrend          `json:"trend"`
	Components TrustComponents     `json:"components"`
	Behavioral *BehavioralAnalysis `json:"behavioral_analysis,omitempty"`
	Error      string              `json:"error,omitempty"`
	// Verified is verify_trust_level's current-trust-vs-threshold check
	// (spec.md:171), filled in by verifier.ContinuousVerification once
	// the session's post-evaluation trust is known.
	Verified bool `json:"verified"`
}

// BehavioralAnalysis surfaces the predictor's raw read alongside the
// composite trust score — RiskLevel is a plain string (not
// anomaly.RiskLevel) so domain stays free of a dependency on
// internal/anomaly.
type BehavioralAnalysis struct {
	AnomalyScore float64 `json:"anomaly_score"`
	RiskLevel    string  `json:"risk_level"`
	Confidence   float64 `json:"confidence"`
	Message      string  `json:"message,omitempty"`
}

type TrustComponents struct {
	Behavioral float64 `json:"behavioral"`
	Temporal   float64 `json:"temporal"`
	Context    float64 `json:"context"`
	Historical float64 `json:"historical"`
	AnomalyFreq float64 `json:"anomaly_freq"`
}

// FallbackTrustResult is the hard-coded triple §4.7 specifies for any
// downstream failure: T=0.5 MODERATE INCREASE_MONITORING.
func FallbackTrustResult(reason string) TrustResult {
	return TrustResult{
		TrustScore: 0.5,
		Level:      TrustModerate,
		Action:     ActionIncreaseMonitoring,
		Trend:      TrendStable,
		Error:      reason,
	}
}

// TrustHistoryEntry is one recorded point of a session's trust-score
// timeline, backing GET /api/trust/history/{session_id} (restored
// from original_source/, see SPEC_FULL.md §3).
type TrustHistoryEntry struct {
	SID        string         `json:"sid"`
	TrustScore float64        `json:"trust_score"`
	Level      TrustLevel     `json:"level"`
	Action     SecurityAction `json:"action"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ModelBundle is the persisted per-user artifact: scaler, three
// fitted detectors, feature importance, and the vocabulary order it
// was trained against.
type ModelBundle struct {
	Version            int                `json:"version"`
	UID                int64              `json:"uid"`
	ScalerMean         []float64          `json:"scaler_mean"`
	ScalerStd          []float64          `json:"scaler_std"`
	IForest            IForestModel       `json:"iforest"`
	OCSVM              OCSVMModel         `json:"ocsvm"`
	LOF                LOFModel           `json:"lof"`
	FeatureImportance  map[string]float64 `json:"feature_importance"`
	FeatureVocabulary  []string           `json:"feature_vocabulary"`
	TrainedAt          time.Time          `json:"trained_at"`
	SampleCount        int                `json:"sample_count"`
}

// IForestModel, OCSVMModel, LOFModel are defined here, fields and all,
// so domain stays dependency-free of internal/anomaly's training code;
// internal/anomaly fits and scores these domain types directly.
type IForestModel struct {
	Trees         []IsolationTree `json:"trees"`
	SubsampleSize int             `json:"subsample_size"`
	NormC         float64         `json:"norm_c"`
}

type IsolationTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	Feature    int     `json:"feature"`
	Threshold  float64 `json:"threshold"`
	Left       int     `json:"left"`
	Right      int     `json:"right"`
	IsLeaf     bool    `json:"is_leaf"`
	Size       int     `json:"size"`
}

type OCSVMModel struct {
	SupportVectors [][]float64 `json:"support_vectors"`
	Gamma          float64     `json:"gamma"`
	Threshold      float64     `json:"threshold"`
}

type LOFModel struct {
	TrainingVectors [][]float64 `json:"training_vectors"`
	K               int         `json:"k"`
	TrainLRD        []float64   `json:"train_lrd"`
	KDistance       []float64   `json:"k_distance"`
}
