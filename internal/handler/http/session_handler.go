package http

import (
	"net/http"
	"time"

	"pos-saas/internal/store"
)

type SessionHandler struct {
	store store.Store
}

func NewSessionHandler(st store.Store) *SessionHandler {
	return &SessionHandler{store: st}
}

// Get implements GET /session/{sid}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid := GetPathParam(r, "sid")
	sess, err := h.store.GetSession(r.Context(), sid)
	if err != nil {
		RespondError(w, err)
		return
	}
	OKResponse(w, map[string]any{
		"sid":                 sess.SID,
		"uid":                 sess.UID,
		"current_trust":       sess.CurrentTrust,
		"min_trust_threshold": sess.MinTrustThreshold,
		"active":              sess.Active,
		"login_time":          sess.LoginTime.Format(time.RFC3339),
		"last_activity":       sess.LastActivity.Format(time.RFC3339),
		"current_action":      sess.CurrentAction,
	})
}

type sessionActivityRequest struct {
	SessionToken string `json:"sessionToken"`
}

// Activity implements PUT /session/activity.
func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	var req sessionActivityRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	sess, err := h.store.GetActiveSessionByToken(r.Context(), req.SessionToken)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.store.TouchActivity(r.Context(), sess.SID, time.Now()); err != nil {
		RespondError(w, err)
		return
	}
	OKResponse(w, map[string]any{"status": "ok"})
}
