package http

import (
	"net/http"

	"pos-saas/internal/domain"
	"pos-saas/internal/store"
	"pos-saas/internal/verifier"
)

// trustPusher is the narrow slice of the ws package's Handler this
// package needs, kept as an interface so the HTTP handler tree has no
// import of the websocket upgrader itself.
type trustPusher interface {
	PushTrustUpdate(sid string, result domain.TrustResult)
}

type TrustHandler struct {
	store    store.Store
	verifier *verifier.Verifier
	pusher   trustPusher // nil-able: WS push is best-effort
}

func NewTrustHandler(st store.Store, v *verifier.Verifier, pusher trustPusher) *TrustHandler {
	return &TrustHandler{store: st, verifier: v, pusher: pusher}
}

type trustScoreRequest struct {
	SessionToken string `json:"sessionToken"`
}

// Score implements POST /trust/score: continuous_verification (spec
// §4.8) — verify the token, run the trust engine, bump last_activity.
func (h *TrustHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req trustScoreRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	sess, result, err := h.verifier.ContinuousVerification(r.Context(), req.SessionToken)
	if err != nil && sess.SID == "" {
		// VerifySessionToken itself rejected the token outright.
		RespondError(w, err)
		return
	}

	if h.pusher != nil && sess.SID != "" {
		h.pusher.PushTrustUpdate(sess.SID, result)
	}

	OKResponse(w, result)
}

// History implements GET /api/trust/history/{session_id} (restored
// from original_source/, SPEC_FULL.md §3).
func (h *TrustHandler) History(w http.ResponseWriter, r *http.Request) {
	sid := GetPathParam(r, "session_id")
	if sid == "" {
		BadRequestResponse(w, "session_id is required")
		return
	}
	limit := GetQueryParamInt(r, "limit", 50)

	entries, err := h.store.RecentTrustHistory(r.Context(), sid, limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	OKResponse(w, map[string]any{"session_id": sid, "history": entries})
}
