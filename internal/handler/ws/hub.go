// Package ws implements the live trust-score push channel restored
// from original_source/backend/main.py's ConnectionManager
// (SPEC_FULL.md §3), adapted from the teacher's
// internal/handler/collaboration_websocket_handler.go readPump/
// writePump pattern onto net/http + gorilla/websocket directly
// (no gin).
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans a session's trust updates out to every connection
// currently subscribed to that session's token.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]chan any // sid -> conn -> outbound queue
}

func NewHub() *Hub {
	return &Hub{conns: map[string]map[*websocket.Conn]chan any{}}
}

func (h *Hub) register(sid string, conn *websocket.Conn) chan any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sid] == nil {
		h.conns[sid] = map[*websocket.Conn]chan any{}
	}
	ch := make(chan any, 16)
	h.conns[sid][conn] = ch
	return ch
}

func (h *Hub) unregister(sid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conns[sid]; ok {
		if ch, ok := conns[conn]; ok {
			close(ch)
		}
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, sid)
		}
	}
}

// Push delivers a trust_update payload to every connection subscribed
// to sid. Non-blocking: a slow/stuck client is dropped from delivery
// for this update rather than blocking the caller (the caller is
// typically an HTTP handler on the request path).
func (h *Hub) Push(sid string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.conns[sid] {
		select {
		case ch <- payload:
		default:
		}
	}
}
