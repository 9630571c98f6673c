// Package trainpipeline assembles a user's qualifying session vectors
// and runs internal/anomaly.Train against them, for both the
// POST /ml/model/train/{uid} handler and the standalone cmd/trainer
// entry point (spec §4.5, §6).
package trainpipeline

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"pos-saas/internal/anomaly"
	"pos-saas/internal/domain"
	"pos-saas/internal/features"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store"
)

const (
	minTotalEvents      = 50
	minQualifyingSessions = 10
	minEventsPerSession = 10
)

// Result is the structured diagnostic spec §4.5/§7 requires: training
// failures return HTTP 200 with success=false, never a 500, and never
// overwrite the previous bundle.
type Result struct {
	Success     bool   `json:"success"`
	UID         int64  `json:"uid"`
	SampleCount int    `json:"sample_count,omitempty"`
	Message     string `json:"message,omitempty"`
}

// TrainUser gathers the user's qualifying session vectors, fits a
// fresh ensemble, and — only on success — persists the bundle and
// profile and refreshes the predictor cache.
func TrainUser(ctx context.Context, st store.Store, cache *predictorcache.Cache, uid int64, rng *rand.Rand) Result {
	total, err := st.CountUserEvents(ctx, uid)
	if err != nil {
		return Result{UID: uid, Message: "could not count events: " + err.Error()}
	}
	if total < minTotalEvents {
		return Result{UID: uid, Message: "insufficient events for training"}
	}

	sids, err := st.QualifyingSessionIDs(ctx, uid, minEventsPerSession)
	if err != nil {
		return Result{UID: uid, Message: "could not list qualifying sessions: " + err.Error()}
	}
	if len(sids) < minQualifyingSessions {
		return Result{UID: uid, Message: "insufficient qualifying sessions for training"}
	}

	vectors := make([][]float64, 0, len(sids))
	var ksSum, msSum map[string][]float64
	ksSum, msSum = map[string][]float64{}, map[string][]float64{}

	for _, sid := range sids {
		events, err := st.AllSessionEvents(ctx, sid)
		if err != nil {
			continue
		}
		agg := make([]features.AggregatedEvent, len(events))
		for i, ev := range events {
			agg[i] = features.AggregatedEvent{Kind: string(ev.Kind), Features: ev.ProcessedFeatures, Timestamp: float64(ev.Timestamp.UnixNano()) / 1e9}
		}
		named := features.AggregateSession(agg)
		vectors = append(vectors, features.Vector(named))
		for name, v := range named {
			switch {
			case strings.HasPrefix(name, "ks_"):
				ksSum[name] = append(ksSum[name], v)
			case strings.HasPrefix(name, "ms_"):
				msSum[name] = append(msSum[name], v)
			}
		}
	}

	bundle, err := anomaly.Train(vectors, features.Vocabulary, uid, anomaly.DefaultTrainParams(), rng)
	if err != nil {
		return Result{UID: uid, Message: "training failed: " + err.Error()}
	}

	if err := st.StoreModelBundle(ctx, bundle); err != nil {
		return Result{UID: uid, Message: "could not persist model bundle: " + err.Error()}
	}
	cache.Store(uid, bundle)

	profile := domain.BehavioralProfile{
		UID:           uid,
		SamplesCount:  total,
		Confidence:    domain.ProfileConfidence(total),
		KeystrokeMean: meansOf(ksSum),
		KeystrokeStd:  stdsOf(ksSum),
		PointerMean:   meansOf(msSum),
		PointerStd:    stdsOf(msSum),
		LastUpdated:   time.Now(),
	}
	if err := st.UpsertProfile(ctx, profile); err != nil {
		return Result{UID: uid, Message: "model trained but profile update failed: " + err.Error()}
	}

	return Result{Success: true, UID: uid, SampleCount: len(vectors)}
}

func meansOf(groups map[string][]float64) map[string]float64 {
	out := make(map[string]float64, len(groups))
	for name, vs := range groups {
		var sum float64
		for _, v := range vs {
			sum += v
		}
		out[name] = sum / float64(len(vs))
	}
	return out
}

func stdsOf(groups map[string][]float64) map[string]float64 {
	out := make(map[string]float64, len(groups))
	for name, vs := range groups {
		m := meansOf(map[string][]float64{name: vs})[name]
		var sumSq float64
		for _, v := range vs {
			d := v - m
			sumSq += d * d
		}
		n := float64(len(vs))
		if n < 2 {
			out[name] = 0
			continue
		}
		variance := sumSq / n
		out[name] = math.Sqrt(variance)
	}
	return out
}
