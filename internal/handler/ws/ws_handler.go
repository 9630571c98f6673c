package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pos-saas/internal/domain"
	"pos-saas/internal/verifier"
)

// Handler implements GET /ws/{sessionToken}: a push channel that
// streams trust_update frames to a connected client whenever a
// subsequent continuous-verification pass recomputes that session's
// score (SPEC_FULL.md §3). Adapted from the teacher's
// collaboration_websocket_handler.go upgrade/readPump/writePump shape;
// there is no operational-transform document here, just a one-way
// trust feed, so the read side only needs to answer pings and notice
// disconnects.
type Handler struct {
	verifier *verifier.Verifier
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(v *verifier.Verifier, hub *Hub) *Handler {
	return &Handler{
		verifier: v,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve handles GET /ws/{sessionToken}.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("sessionToken")
	sess, err := h.verifier.VerifySessionToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed sid=%s: %v", sess.SID, err)
		return
	}
	defer conn.Close()

	updates := h.hub.register(sess.SID, conn)
	defer h.hub.unregister(sess.SID, conn)

	_ = conn.WriteJSON(map[string]any{
		"type": "connected",
		"data": map[string]any{
			"sid":           sess.SID,
			"current_trust": sess.CurrentTrust,
		},
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.readPump(conn, cancel)
	h.writePump(conn, updates, ctx)
}

// readPump only has to notice disconnects and answer client pings —
// the client never drives state here, it just listens.
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}
		if msg["type"] == "ping" {
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, updates <-chan any, ctx context.Context) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// TrustUpdatePayload is what Push sends downstream of a trust
// evaluation; kept here (rather than in domain) since it is purely a
// wire-shape concern of this channel.
type TrustUpdatePayload struct {
	Type string             `json:"type"`
	Data domain.TrustResult `json:"data"`
}

// PushTrustUpdate is the hook the trust engine's callers use to fan
// a freshly computed result out over any open socket for that sid.
func (h *Handler) PushTrustUpdate(sid string, result domain.TrustResult) {
	h.hub.Push(sid, TrustUpdatePayload{Type: "trust_update", Data: result})
}
