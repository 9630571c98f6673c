package http

import (
	"database/sql"
	"net/http"

	"pos-saas/internal/predictorcache"
)

type HealthHandler struct {
	db    *sql.DB // nil when running against an in-memory store
	cache *predictorcache.Cache
}

func NewHealthHandler(db *sql.DB, cache *predictorcache.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health implements GET /health, restored from original_source/backend/main.py's
// liveness probe (SPEC_FULL.md §3).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			dbOK = false
		}
	}

	status := "healthy"
	if !dbOK {
		status = "degraded"
	}

	OKResponse(w, map[string]any{
		"status":             status,
		"database_reachable": dbOK,
		"loaded_models":      h.cache.Len(),
	})
}
