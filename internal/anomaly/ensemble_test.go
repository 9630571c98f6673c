package anomaly

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-saas/internal/features"
)

func syntheticVectors(n, dims int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, dims)
		for d := range v {
			v[d] = rng.NormFloat64()
		}
		out[i] = v
	}
	return out
}

func TestTrainAndPredictRangeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vectors := syntheticVectors(40, len(features.Vocabulary), rng)

	bundle, err := Train(vectors, features.Vocabulary, 7, DefaultTrainParams(), rng)
	require.NoError(t, err)
	require.Len(t, bundle.FeatureVocabulary, len(features.Vocabulary))

	result := Predict(bundle, vectors[0], bundle.FeatureVocabulary)
	assert.GreaterOrEqual(t, result.AnomalyScore, 0.0)
	assert.LessOrEqual(t, result.AnomalyScore, 1.0)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestPredictDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	vectors := syntheticVectors(30, len(features.Vocabulary), rng)
	bundle, err := Train(vectors, features.Vocabulary, 1, DefaultTrainParams(), rng)
	require.NoError(t, err)

	a := Predict(bundle, vectors[3], bundle.FeatureVocabulary)
	b := Predict(bundle, vectors[3], bundle.FeatureVocabulary)
	assert.Equal(t, a.AnomalyScore, b.AnomalyScore)
	assert.Equal(t, a.DetectorScores, b.DetectorScores)
}

func TestTrainEmptyFails(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	_, err := Train(nil, features.Vocabulary, 1, DefaultTrainParams(), rng)
	assert.Error(t, err)
}

func TestRiskLevelThresholds(t *testing.T) {
	assert.Equal(t, RiskHighRisk, RiskLevelFor(0.8))
	assert.Equal(t, RiskMediumRisk, RiskLevelFor(0.6))
	assert.Equal(t, RiskLowRisk, RiskLevelFor(0.3))
	assert.Equal(t, RiskNormal, RiskLevelFor(0.29))
}
