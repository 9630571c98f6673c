package http

import (
	"context"
	"net/http"

	"pos-saas/internal/audit"
	"pos-saas/internal/domain"
	"pos-saas/internal/store"
)

type SecurityHandler struct {
	store store.Store
	audit *audit.Logger
}

func NewSecurityHandler(st store.Store, logger *audit.Logger) *SecurityHandler {
	return &SecurityHandler{store: st, audit: logger}
}

type securityActionRequest struct {
	SessionID string `json:"sessionId"`
	Action    string `json:"action"`
}

var knownActions = map[domain.SecurityAction]bool{
	domain.ActionTerminateSession:   true,
	domain.ActionRequireReauth:      true,
	domain.ActionRestrictAccess:     true,
	domain.ActionIncreaseMonitoring: true,
	domain.ActionNone:               true,
}

// Action implements POST /security/action. RESTRICT_ACCESS and
// INCREASE_MONITORING are advisory only (SPEC_FULL.md §0.4): they are
// audited, but this endpoint does not write them to the session row
// and no authorization boundary enforces them here. TERMINATE_SESSION is the one action this
// endpoint actually carries out.
func (h *SecurityHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req securityActionRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	action := domain.SecurityAction(req.Action)
	if !knownActions[action] {
		BadRequestResponse(w, "unknown security action: "+req.Action)
		return
	}

	sess, err := h.store.GetSession(r.Context(), req.SessionID)
	if err != nil {
		RespondError(w, err)
		return
	}

	status := "observed"
	message := "action recorded; advisory only"
	if action == domain.ActionTerminateSession {
		if err := h.store.DeactivateSession(r.Context(), sess.SID); err != nil {
			RespondError(w, err)
			return
		}
		status = "applied"
		message = "session terminated"
	}

	h.logAction(r.Context(), sess, action, status)

	OKResponse(w, map[string]any{"success": true, "action": string(action), "message": message})
}

func (h *SecurityHandler) logAction(ctx context.Context, sess domain.Session, action domain.SecurityAction, status string) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		SID: sess.SID, UID: sess.UID, Action: string(action),
		Reason: "explicit /security/action call", TrustScore: sess.CurrentTrust,
		IPAddress: sess.IP, UserAgent: sess.UserAgent, Status: status,
	}
	_ = h.audit.Log(ctx, entry)
}
