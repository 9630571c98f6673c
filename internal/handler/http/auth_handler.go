package http

import (
	"net/http"
	"time"

	"pos-saas/internal/auth"
	"pos-saas/internal/domain"
	"pos-saas/internal/middleware"
	"pos-saas/internal/pkg/jwt"
	"pos-saas/internal/store"
)

type AuthHandler struct {
	store  store.Store
	tokens *jwt.TokenService
}

func NewAuthHandler(st store.Store, tokens *jwt.TokenService) *AuthHandler {
	return &AuthHandler{store: st, tokens: tokens}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register implements POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		BadRequestResponse(w, "username, email and password are required")
		return
	}

	hash, err := domain.HashPassword(req.Password)
	if err != nil {
		InternalErrorResponse(w, "could not hash password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		RespondError(w, err)
		return
	}

	CreatedResponse(w, map[string]any{"user_id": user.UID, "username": user.Username})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login implements POST /auth/login: verifies credentials, issues a
// bearer JWT (the owner-collaborator half of auth) and creates a new
// behavioral-trust session with its own opaque session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !user.CheckPassword(req.Password) {
		UnauthorizedResponse(w, "invalid username or password")
		return
	}
	if !user.Active {
		UnauthorizedResponse(w, "account disabled")
		return
	}

	accessToken, err := h.tokens.GenerateToken(user.UID, user.Username)
	if err != nil {
		InternalErrorResponse(w, "could not issue token")
		return
	}

	sessionToken, err := auth.NewSessionToken()
	if err != nil {
		InternalErrorResponse(w, "could not issue session token")
		return
	}

	sess, err := h.store.CreateSession(r.Context(), user.UID, sessionToken, r.RemoteAddr, r.UserAgent())
	if err != nil {
		RespondError(w, err)
		return
	}

	OKResponse(w, map[string]any{
		"access_token":  accessToken,
		"session_token": sess.SessionToken,
		"token_type":    "bearer",
		"user_id":       user.UID,
		"username":      user.Username,
	})
}

// Me implements GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r)
	if uid == 0 {
		UnauthorizedResponse(w, "missing or invalid bearer token")
		return
	}
	user, err := h.store.GetUserByID(r.Context(), uid)
	if err != nil {
		RespondError(w, err)
		return
	}
	OKResponse(w, map[string]any{
		"uid":        user.UID,
		"username":   user.Username,
		"email":      user.Email,
		"active":     user.Active,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	})
}

type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

// Logout implements POST /auth/logout: explicit session termination,
// one of the three ways a session becomes inactive per spec.md §3.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	sess, err := h.store.GetActiveSessionByToken(r.Context(), req.SessionToken)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.store.DeactivateSession(r.Context(), sess.SID); err != nil {
		RespondError(w, err)
		return
	}
	OKResponse(w, map[string]any{"ok": true})
}
