// Package predictorcache implements the process-wide, per-user model
// cache (component F in spec §4.6): lazily loads a user's trained
// anomaly-model bundle from the store and serves predictions against
// it, falling back to a neutral result when no model is available.
package predictorcache

import (
	"context"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"pos-saas/internal/anomaly"
	"pos-saas/internal/domain"
)

// BundleLoader is the narrow slice of the store this package needs —
// kept as its own interface so predictorcache has no dependency on
// the concrete store package, only on domain.
type BundleLoader interface {
	LoadModelBundle(ctx context.Context, uid int64) (domain.ModelBundle, bool, error)
}

// safetyBoundCapacity backs the cache's LRU with a generously large
// capacity. Spec §4.6 says the cache is "unbounded unless cleared";
// this repo still wires in hashicorp/golang-lru/v2 (one of the pack's
// libraries) as a safety bound against pathological memory growth —
// under normal operation, with one bundle per active user, eviction
// never triggers. An operator seeing the eviction log line below has
// exceeded the number of concurrently-loaded users this process was
// sized for.
const safetyBoundCapacity = 100_000

// Cache is the predictor cache. Reads take a shared reference; writes
// (load, train, evict) take an exclusive per-uid lock, per spec §5.
type Cache struct {
	loader BundleLoader
	bundles *lru.Cache[int64, *domain.ModelBundle]
	locks  sync.Map // uid -> *sync.Mutex, guards the load-on-first-use path
}

func New(loader BundleLoader) *Cache {
	c := &Cache{loader: loader}
	bundles, err := lru.NewWithEvict[int64, *domain.ModelBundle](safetyBoundCapacity, func(uid int64, _ *domain.ModelBundle) {
		log.Printf("[PredictorCache] evicted model for uid=%d (safety bound reached)", uid)
	})
	if err != nil {
		// Only returns an error for a non-positive size, which
		// safetyBoundCapacity never is.
		panic(err)
	}
	c.bundles = bundles
	return c
}

func (c *Cache) uidLock(uid int64) *sync.Mutex {
	l, _ := c.locks.LoadOrStore(uid, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Predict loads (or reuses) the user's model bundle and scores
// rawVector against it. It never returns an error: missing or
// unreadable bundles produce anomaly.NeutralResult per spec §4.6.
func (c *Cache) Predict(ctx context.Context, uid int64, rawVector []float64, vocabulary []string) anomaly.PredictionResult {
	if bundle, ok := c.bundles.Get(uid); ok {
		return anomaly.Predict(*bundle, rawVector, vocabulary)
	}

	lock := c.uidLock(uid)
	lock.Lock()
	defer lock.Unlock()

	// Re-check: another goroutine may have loaded it while we waited.
	if bundle, ok := c.bundles.Get(uid); ok {
		return anomaly.Predict(*bundle, rawVector, vocabulary)
	}

	bundle, found, err := c.loader.LoadModelBundle(ctx, uid)
	if err != nil {
		log.Printf("[PredictorCache] load error for uid=%d: %v", uid, err)
		return anomaly.NeutralResult("load_error")
	}
	if !found {
		return anomaly.NeutralResult("no_model")
	}
	c.bundles.Add(uid, &bundle)
	return anomaly.Predict(bundle, rawVector, vocabulary)
}

// Store inserts a freshly trained bundle, overwriting any cached
// entry for that uid (the write path after a successful /ml/model/train).
func (c *Cache) Store(uid int64, bundle domain.ModelBundle) {
	lock := c.uidLock(uid)
	lock.Lock()
	defer lock.Unlock()
	c.bundles.Add(uid, &bundle)
}

// Evict drops uid's cached model, forcing the next Predict to reload
// from the store.
func (c *Cache) Evict(uid int64) {
	lock := c.uidLock(uid)
	lock.Lock()
	defer lock.Unlock()
	c.bundles.Remove(uid)
}

// Loaded reports whether uid currently has a model in memory, backing
// the `loaded` field of GET /ml/model/status/{uid}.
func (c *Cache) Loaded(uid int64) bool {
	return c.bundles.Contains(uid)
}

// Get returns the cached bundle for uid without triggering a load,
// for read-only status reporting.
func (c *Cache) Get(uid int64) (*domain.ModelBundle, bool) {
	return c.bundles.Peek(uid)
}

// Len reports how many user models are currently resident, backing
// GET /health's loaded-model count.
func (c *Cache) Len() int {
	return c.bundles.Len()
}
