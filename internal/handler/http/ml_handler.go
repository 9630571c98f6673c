package http

import (
	"net/http"
	"strconv"
	"time"

	"pos-saas/internal/anomaly"
	"pos-saas/internal/features"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store"
	"pos-saas/internal/trainpipeline"
)

type MLHandler struct {
	store store.Store
	cache *predictorcache.Cache
}

func NewMLHandler(st store.Store, cache *predictorcache.Cache) *MLHandler {
	return &MLHandler{store: st, cache: cache}
}

// Status implements GET /ml/model/status/{uid}.
func (h *MLHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, err := parseUID(r)
	if err != nil {
		BadRequestResponse(w, err.Error())
		return
	}

	loaded := h.cache.Loaded(uid)
	var modelsAvailable []string
	var topFeatures []string
	featureCount := 0

	if bundle, ok := h.cache.Get(uid); ok {
		if len(bundle.IForest.Trees) > 0 {
			modelsAvailable = append(modelsAvailable, "iforest")
		}
		if len(bundle.OCSVM.SupportVectors) > 0 {
			modelsAvailable = append(modelsAvailable, "ocsvm")
		}
		if len(bundle.LOF.TrainingVectors) > 0 {
			modelsAvailable = append(modelsAvailable, "lof")
		}
		featureCount = len(bundle.FeatureVocabulary)
		ranked := anomaly.SortedImportance(*bundle)
		if len(ranked) > 10 {
			ranked = ranked[:10]
		}
		topFeatures = ranked
	} else if bundle, found, err := h.store.LoadModelBundle(r.Context(), uid); err == nil && found {
		loaded = true
		featureCount = len(bundle.FeatureVocabulary)
		ranked := anomaly.SortedImportance(bundle)
		if len(ranked) > 10 {
			ranked = ranked[:10]
		}
		topFeatures = ranked
		if len(bundle.IForest.Trees) > 0 {
			modelsAvailable = append(modelsAvailable, "iforest")
		}
		if len(bundle.OCSVM.SupportVectors) > 0 {
			modelsAvailable = append(modelsAvailable, "ocsvm")
		}
		if len(bundle.LOF.TrainingVectors) > 0 {
			modelsAvailable = append(modelsAvailable, "lof")
		}
	}
	if featureCount == 0 {
		featureCount = len(features.Vocabulary)
	}

	OKResponse(w, map[string]any{
		"loaded":            loaded,
		"models_available":  modelsAvailable,
		"feature_count":     featureCount,
		"top_features":      topFeatures,
	})
}

// Train implements POST /ml/model/train/{uid} (spec §4.5). Training
// failures return HTTP 200 with success=false per spec §7 — never a
// 500, and the previous bundle (if any) is left untouched.
func (h *MLHandler) Train(w http.ResponseWriter, r *http.Request) {
	uid, err := parseUID(r)
	if err != nil {
		BadRequestResponse(w, err.Error())
		return
	}

	rng := anomaly.NewRand(time.Now().UnixNano())
	result := trainpipeline.TrainUser(r.Context(), h.store, h.cache, uid, rng)
	OKResponse(w, result)
}

func parseUID(r *http.Request) (int64, error) {
	raw := GetPathParam(r, "uid")
	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uid, nil
}
