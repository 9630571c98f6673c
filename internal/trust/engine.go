// Package trust implements the composite trust engine (component G,
// spec §4.7): behavioral anomaly, temporal consistency, session
// context, historical trust, and recent anomaly frequency, combined
// into a bounded trust score, classified into a level, and mapped to
// a security action.
package trust

import (
	"context"
	"log"
	"time"

	"pos-saas/internal/audit"
	"pos-saas/internal/config"
	"pos-saas/internal/domain"
	"pos-saas/internal/features"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store"
)

// evaluationDeadline is the soft deadline spec §5 sets on a trust
// calculation; exceeding it yields the fallback result with
// error=timeout rather than blocking the caller.
const evaluationDeadline = 500 * time.Millisecond

type Engine struct {
	store   store.Store
	cache   *predictorcache.Cache
	cfg     config.EngineConfig
	auditor *audit.Logger
}

func New(st store.Store, cache *predictorcache.Cache, cfg config.EngineConfig) *Engine {
	return &Engine{store: st, cache: cache, cfg: cfg}
}

// SetAuditor attaches the audit trail every automatic security-action
// transition gets written to. Nil-safe: without one, Evaluate simply
// doesn't log (as in the tests, which wire no audit writer).
func (e *Engine) SetAuditor(l *audit.Logger) {
	e.auditor = l
}

// Evaluate computes (and persists) a session's trust result. It never
// returns an error: every downstream failure is recovered locally
// into a fallback result per spec §4.7/§7, because the engine must
// stay available.
func (e *Engine) Evaluate(ctx context.Context, sid string) domain.TrustResult {
	type outcome struct {
		result domain.TrustResult
	}
	done := make(chan outcome, 1)

	go func() {
		done <- outcome{result: e.evaluateNow(ctx, sid)}
	}()

	select {
	case o := <-done:
		return o.result
	case <-time.After(evaluationDeadline):
		log.Printf("[TrustEngine] sid=%s exceeded %s soft deadline", sid, evaluationDeadline)
		return domain.FallbackTrustResult("timeout")
	}
}

func (e *Engine) evaluateNow(ctx context.Context, sid string) domain.TrustResult {
	var result domain.TrustResult

	err := e.store.RunInTrustTxn(ctx, sid, func(txn store.TrustTxn) error {
		result = e.compute(ctx, txn)
		return nil
	})
	if err != nil {
		log.Printf("[TrustEngine] sid=%s transaction failed: %v", sid, err)
		fb := domain.FallbackTrustResult("session_not_found")
		if domain.KindOf(err) != domain.KindNotFound {
			fb.Error = "internal"
		}
		return fb
	}

	if result.Error == "" {
		entry := domain.TrustHistoryEntry{SID: sid, TrustScore: result.TrustScore, Level: result.Level, Action: result.Action, RecordedAt: time.Now()}
		if err := e.store.AppendTrustHistory(ctx, entry); err != nil {
			log.Printf("[TrustEngine] sid=%s trust-history append failed: %v", sid, err)
		}
	}
	return result
}

func (e *Engine) compute(ctx context.Context, txn store.TrustTxn) domain.TrustResult {
	sess := txn.Session()
	if !sess.Active {
		return domain.FallbackTrustResult("session_inactive")
	}
	now := time.Now()

	allEvents := txn.AllEvents()
	behavioral, analysis := e.behavioralComponent(ctx, sess.UID, allEvents)
	temporal := temporalComponent(txn.RecentEvents(now.Add(-10*time.Minute), 20), e.cfg.Decay, now.Sub(sess.LastActivity))
	sessionContext := sessionContextComponent(sess, allEvents, now)
	historical := historicalComponent(txn.RecentUserSessions(now.Add(-7*24*time.Hour), 10))
	anomalyFreq := anomalyFrequencyComponent(txn.RecentEvents(now.Add(-15*time.Minute), 10000))

	w := e.cfg.TrustWeights
	raw := w.Behavioral*behavioral + w.Temporal*temporal + w.Context*sessionContext + w.Historical*historical + w.AnomalyFreq*anomalyFreq
	raw = clamp(raw, 0, 1)

	// level and action always reflect the true instantaneous evidence
	// (raw), never the decay-limited score: a fully saturated anomaly
	// reading must reach CRITICAL/TERMINATE_SESSION in one step, and a
	// first-ever evaluation must be able to land exactly on raw — the
	// decay cap only smooths the *stored* trust across an already-
	// evaluated session's subsequent updates, per SPEC_FULL.md §0.3.
	level := domain.LevelForTrust(raw)
	action := domain.ActionForLevel(level)

	trustScore := raw
	switch {
	case action == domain.ActionTerminateSession:
		// no smoothing: a full-confidence termination decision must
		// not be softened by the decay cap.
	case action == domain.ActionRequireReauth:
		if trustScore > 0.3 {
			trustScore = 0.3
		}
	case sess.Evaluated:
		decayCap := e.cfg.Decay.MaxDecayPerUpdate
		if decayCap <= 0 {
			decayCap = 0.2
		}
		lo := sess.CurrentTrust - decayCap
		hi := sess.CurrentTrust + decayCap + e.cfg.Decay.RecoveryRate
		trustScore = clamp(raw, clamp(lo, 0, 1), clamp(hi, 0, 1))
	}

	trend := domain.TrendStable
	if d := trustScore - sess.CurrentTrust; d > 0.05 {
		trend = domain.TrendIncreasing
	} else if d < -0.05 {
		trend = domain.TrendDecreasing
	}

	active := action != domain.ActionTerminateSession
	if err := txn.UpdateTrust(trustScore, active, string(action), now); err != nil {
		log.Printf("[TrustEngine] write-back failed: %v", err)
	}

	if e.auditor != nil && string(action) != sess.CurrentAction {
		entry := audit.Entry{
			SID: sess.SID, UID: sess.UID, Action: string(action),
			Reason: "trust_level=" + string(level), TrustScore: trustScore,
			IPAddress: sess.IP, UserAgent: sess.UserAgent, Status: "observed",
		}
		if err := e.auditor.Log(ctx, entry); err != nil {
			log.Printf("[TrustEngine] sid=%s audit log failed: %v", sess.SID, err)
		}
	}

	return domain.TrustResult{
		TrustScore: trustScore,
		Level:      level,
		Action:     action,
		Trend:      trend,
		Components: domain.TrustComponents{
			Behavioral:  behavioral,
			Temporal:    temporal,
			Context:     sessionContext,
			Historical:  historical,
			AnomalyFreq: anomalyFreq,
		},
		Behavioral: analysis,
	}
}

// behavioralComponent implements spec §4.7 step 1: b = 1-anomaly,
// tempered by confidence: b' = b*c + 0.5*(1-c). A missing/unreadable
// model naturally yields confidence=0, so b' collapses to the 0.5
// neutral value without a special case.
func (e *Engine) behavioralComponent(ctx context.Context, uid int64, allEvents []domain.BehavioralEvent) (float64, *domain.BehavioralAnalysis) {
	agg := make([]features.AggregatedEvent, len(allEvents))
	for i, ev := range allEvents {
		agg[i] = features.AggregatedEvent{Kind: string(ev.Kind), Features: ev.ProcessedFeatures, Timestamp: float64(ev.Timestamp.UnixNano()) / 1e9}
	}
	named := features.AggregateSession(agg)
	vector := features.Vector(named)

	pred := e.cache.Predict(ctx, uid, vector, features.Vocabulary)

	b := 1 - pred.AnomalyScore
	c := pred.Confidence
	bPrime := b*c + 0.5*(1-c)

	analysis := &domain.BehavioralAnalysis{
		AnomalyScore: pred.AnomalyScore,
		RiskLevel:    string(pred.RiskLevel),
		Confidence:   pred.Confidence,
	}
	if pred.Reason == "no_model" {
		analysis.Message = "No trained model available"
	} else if pred.Reason == "load_error" {
		analysis.Message = "Stored model could not be loaded"
	}
	return bPrime, analysis
}

// temporalComponent implements spec §4.7 step 2, with the idle decay
// rate (SPEC_FULL.md §0.3) layered on as an additional multiplicative
// penalty for long idle gaps. The anomaly decay rate is not applied
// here or anywhere else in the engine.
func temporalComponent(recent []domain.BehavioralEvent, decay config.Decay, idleSince time.Duration) float64 {
	if len(recent) < 5 {
		return applyIdleDecay(0.7, decay, idleSince)
	}
	gaps := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		gaps = append(gaps, recent[i].Timestamp.Sub(recent[i-1].Timestamp).Seconds())
	}
	m := mean(gaps)
	v := variance(gaps)
	denom := m
	if denom < 1 {
		denom = 1
	}
	t := 1 / (1 + v/denom)
	if v < 0.1 && m < 1 {
		t *= 0.5
	}
	return applyIdleDecay(t, decay, idleSince)
}

func applyIdleDecay(t float64, decay config.Decay, idleSince time.Duration) float64 {
	idleMinutes := idleSince.Minutes()
	if idleMinutes <= 0 {
		return t
	}
	penalty := decay.IdleDecayRate * clamp(idleMinutes/60.0, 0, 1)
	return clamp(t*(1-penalty), 0, 1)
}

// sessionContextComponent implements spec §4.7 step 3.
func sessionContextComponent(sess domain.Session, allEvents []domain.BehavioralEvent, now time.Time) float64 {
	x := 1.0
	duration := now.Sub(sess.LoginTime)
	if duration < 60*time.Second {
		x *= 0.7
	} else if duration > 8*time.Hour {
		x *= 0.8
	}

	minutes := duration.Minutes()
	if minutes <= 0 {
		return x
	}
	eventsPerMinute := float64(len(allEvents)) / minutes
	switch {
	case eventsPerMinute < 1:
		x *= 0.6
	case eventsPerMinute > 100:
		x *= 0.5
	}
	return x
}

// historicalComponent implements spec §4.7 step 4.
func historicalComponent(sessions []domain.Session) float64 {
	if len(sessions) == 0 {
		return 0.5
	}
	trusts := make([]float64, len(sessions))
	for i, s := range sessions {
		trusts[i] = s.CurrentTrust
	}
	return mean(trusts) * (1 / (1 + variance(trusts)))
}

// anomalyFrequencyComponent implements spec §4.7 step 5.
func anomalyFrequencyComponent(recent []domain.BehavioralEvent) float64 {
	if len(recent) == 0 {
		return 1.0
	}
	nonAnomalous := 0
	for _, e := range recent {
		if !e.IsAnomalous {
			nonAnomalous++
		}
	}
	return float64(nonAnomalous) / float64(len(recent))
}
