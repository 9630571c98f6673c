package anomaly

import (
	"math"
	"sort"

	"pos-saas/internal/domain"
)

const maxSupportVectors = 100

// FitOCSVM builds a one-class-margin model: a Gaussian-kernel density
// novelty score over a bounded sample of training vectors (the
// "support vectors"), thresholded at the `nu` expected-outlier
// fraction. Spec §4.5: `ocsvm.kernel=rbf gamma=scale nu=0.1`.
func FitOCSVM(vectors [][]float64, nu float64) domain.OCSVMModel {
	sv := vectors
	if len(sv) > maxSupportVectors {
		sv = vectors[:maxSupportVectors]
	}

	gamma := rbfScaleGamma(vectors)

	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scores[i] = kernelDensity(v, sv, gamma)
	}
	threshold := quantile(scores, nu)

	return domain.OCSVMModel{SupportVectors: sv, Gamma: gamma, Threshold: threshold}
}

// rbfScaleGamma mirrors sklearn's gamma='scale' heuristic:
// 1 / (n_features * X.var()).
func rbfScaleGamma(vectors [][]float64) float64 {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 1
	}
	nFeatures := len(vectors[0])
	var flat []float64
	for _, v := range vectors {
		flat = append(flat, v...)
	}
	v := variance(flat)
	if v == 0 {
		return 1
	}
	return 1 / (float64(nFeatures) * v)
}

func kernelDensity(x []float64, sv [][]float64, gamma float64) float64 {
	if len(sv) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sv {
		d := euclidean(x, s)
		sum += math.Exp(-gamma * d * d)
	}
	return sum / float64(len(sv))
}

// quantile returns the value below which fraction p of xs fall.
func quantile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	idx := int(p * float64(len(s)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s) {
		idx = len(s) - 1
	}
	return s[idx]
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - m
		sq += d * d
	}
	return sq / float64(len(xs))
}

// ScoreOCSVM returns the raw signed-distance score (lower = more
// anomalous), the `s` in spec §4.5's `clamp((2.0-s)/4.0,0,1)`.
func ScoreOCSVM(model domain.OCSVMModel, x []float64) (float64, bool) {
	if len(model.SupportVectors) == 0 {
		return 0, false
	}
	density := kernelDensity(x, model.SupportVectors, model.Gamma)
	// Rescale the (density - threshold) margin into the same rough
	// [-2,2] band sklearn's decision_function occupies so the spec's
	// fixed normalization constants stay meaningful.
	return (density - model.Threshold) * 10, true
}
