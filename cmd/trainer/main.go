// cmd/trainer is the standalone retraining entry point spec §6
// describes: scan every known user, train the ones whose qualifying
// session count and event count clear the minimums, and skip the
// rest. It also exposes a tiny chi-routed debug status page
// (SPEC_FULL.md §2) so an operator can watch a long batch run without
// tailing logs.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"pos-saas/internal/anomaly"
	"pos-saas/internal/config"
	"pos-saas/internal/pkg/database"
	"pos-saas/internal/predictorcache"
	"pos-saas/internal/store"
	"pos-saas/internal/store/memstore"
	"pos-saas/internal/store/postgres"
	"pos-saas/internal/trainpipeline"
)

// runState backs the debug mux: a snapshot of the in-progress batch,
// guarded separately from the store itself since it's read from an
// HTTP handler concurrently with the training loop below.
type runState struct {
	mu        sync.RWMutex
	total     int
	completed int
	results   []trainpipeline.Result
	startedAt time.Time
}

func (r *runState) record(res trainpipeline.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	r.results = append(r.results, res)
}

func (r *runState) snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]any{
		"total":      r.total,
		"completed":  r.completed,
		"started_at": r.startedAt.Format(time.RFC3339),
		"results":    r.results,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var st store.Store
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Printf("⚠️ Warning: Failed to connect to database: %v. Training against an empty in-memory store.", err)
		st = memstore.New()
	} else {
		defer db.Close()
		st = postgres.New(db)
	}

	cache := predictorcache.New(st)
	state := &runState{startedAt: time.Now()}

	debugAddr := getenvDefault("TRAINER_DEBUG_ADDR", "127.0.0.1:9091")
	go serveDebugMux(debugAddr, state)

	ctx := context.Background()
	uids, err := st.AllUserIDs(ctx)
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}
	state.mu.Lock()
	state.total = len(uids)
	state.mu.Unlock()

	rng := anomaly.NewRand(time.Now().UnixNano())
	log.Printf("Scanning %d users for retraining", len(uids))
	for _, uid := range uids {
		result := trainpipeline.TrainUser(ctx, st, cache, uid, rng)
		state.record(result)
		if result.Success {
			log.Printf("✅ trained uid=%d samples=%d", uid, result.SampleCount)
		} else {
			log.Printf("⏭️  skipped uid=%d: %s", uid, result.Message)
		}
	}
	log.Println("✅ Training sweep completed")
}

func serveDebugMux(addr string, state *runState) {
	r := chi.NewRouter()
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state.snapshot())
	})
	log.Printf("trainer debug status at http://%s/status", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Printf("trainer debug mux stopped: %v", err)
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
