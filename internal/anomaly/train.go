package anomaly

import (
	"math/rand"
	"sort"
	"time"

	"pos-saas/internal/domain"
)

// TrainParams mirrors the fixed hyperparameters spec §4.5 names:
// `contamination=0.1, iforest.n_estimators=100, ocsvm.kernel=rbf
// gamma=scale nu=0.1, lof.n_neighbors=20 novelty=true`.
type TrainParams struct {
	NEstimators  int
	Contamination float64
	Nu           float64
	LOFNeighbors int
}

func DefaultTrainParams() TrainParams {
	return TrainParams{NEstimators: 100, Contamination: 0.1, Nu: 0.1, LOFNeighbors: 20}
}

// Train fits the standardizer and all three detectors on a user's
// historical session vectors (already in vocabulary order) and
// returns a persistable bundle. Never returns a partial bundle: if
// there is nothing to fit on, it returns an error rather than an
// empty model.
func Train(vectors [][]float64, vocabulary []string, uid int64, p TrainParams, rng *rand.Rand) (domain.ModelBundle, error) {
	if len(vectors) == 0 {
		return domain.ModelBundle{}, domain.InsufficientData("no session vectors to train on")
	}

	mean, std := FitScaler(vectors)
	scaled := make([][]float64, len(vectors))
	for i, v := range vectors {
		scaled[i] = Scale(v, mean, std)
	}

	iforest := FitIForest(scaled, p.NEstimators, rng)
	ocsvm := FitOCSVM(scaled, p.Nu)
	lof := FitLOF(scaled, p.LOFNeighbors)

	if len(iforest.Trees) == 0 && len(ocsvm.SupportVectors) == 0 && len(lof.TrainingVectors) == 0 {
		return domain.ModelBundle{}, domain.InsufficientData("all detectors failed to fit")
	}

	importance := featureImportance(scaled, vocabulary)

	return domain.ModelBundle{
		Version:           1,
		UID:               uid,
		ScalerMean:        mean,
		ScalerStd:         std,
		IForest:           iforest,
		OCSVM:             ocsvm,
		LOF:               lof,
		FeatureImportance: importance,
		FeatureVocabulary: append([]string(nil), vocabulary...),
		TrainedAt:         time.Now(),
		SampleCount:       len(vectors),
	}, nil
}

// featureImportance = per-feature variance normalized by the max
// variance across features, spec §4.5 step 3.
func featureImportance(scaled [][]float64, vocabulary []string) map[string]float64 {
	out := make(map[string]float64, len(vocabulary))
	if len(scaled) == 0 {
		return out
	}
	nFeatures := len(vocabulary)
	vars := make([]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		col := make([]float64, len(scaled))
		for i, v := range scaled {
			if f < len(v) {
				col[i] = v[f]
			}
		}
		vars[f] = varianceOf(col)
	}
	maxVar := 0.0
	for _, v := range vars {
		if v > maxVar {
			maxVar = v
		}
	}
	for i, name := range vocabulary {
		if maxVar > 0 {
			out[name] = vars[i] / maxVar
		} else {
			out[name] = 0
		}
	}
	return out
}

// SortedImportance returns vocabulary names ordered by descending
// importance, used by the /ml/model/status endpoint's top_features.
func SortedImportance(bundle domain.ModelBundle) []string {
	names := append([]string(nil), bundle.FeatureVocabulary...)
	sort.Slice(names, func(i, j int) bool {
		return bundle.FeatureImportance[names[i]] > bundle.FeatureImportance[names[j]]
	})
	return names
}

// NewRand builds the source isolation-forest training draws from,
// seeded by the caller: cmd/trainer seeds one source per run, the
// POST /ml/model/train handler one per request.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
