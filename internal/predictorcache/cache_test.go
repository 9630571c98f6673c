package predictorcache

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-saas/internal/anomaly"
	"pos-saas/internal/domain"
	"pos-saas/internal/features"
)

type fakeLoader struct {
	mu     sync.Mutex
	calls  int
	bundle domain.ModelBundle
	found  bool
	err    error
}

func (f *fakeLoader) LoadModelBundle(ctx context.Context, uid int64) (domain.ModelBundle, bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.bundle, f.found, f.err
}

func trainedBundle(t *testing.T) domain.ModelBundle {
	rng := rand.New(rand.NewSource(9))
	vectors := make([][]float64, 30)
	for i := range vectors {
		v := make([]float64, len(features.Vocabulary))
		for d := range v {
			v[d] = rng.NormFloat64()
		}
		vectors[i] = v
	}
	bundle, err := anomaly.Train(vectors, features.Vocabulary, 1, anomaly.DefaultTrainParams(), rng)
	require.NoError(t, err)
	return bundle
}

func TestPredictNoModel(t *testing.T) {
	loader := &fakeLoader{found: false}
	c := New(loader)
	result := c.Predict(context.Background(), 1, make([]float64, len(features.Vocabulary)), features.Vocabulary)
	assert.Equal(t, "no_model", result.Reason)
	assert.Equal(t, anomaly.RiskUnknown, result.RiskLevel)
}

func TestPredictLoadsOnceThenReuses(t *testing.T) {
	loader := &fakeLoader{found: true, bundle: trainedBundle(t)}
	c := New(loader)
	vec := make([]float64, len(features.Vocabulary))

	c.Predict(context.Background(), 1, vec, features.Vocabulary)
	c.Predict(context.Background(), 1, vec, features.Vocabulary)

	assert.Equal(t, 1, loader.calls)
	assert.True(t, c.Loaded(1))
}

func TestEvictForcesReload(t *testing.T) {
	loader := &fakeLoader{found: true, bundle: trainedBundle(t)}
	c := New(loader)
	vec := make([]float64, len(features.Vocabulary))

	c.Predict(context.Background(), 1, vec, features.Vocabulary)
	c.Evict(1)
	assert.False(t, c.Loaded(1))
	c.Predict(context.Background(), 1, vec, features.Vocabulary)
	assert.Equal(t, 2, loader.calls)
}
