package http

import (
	"encoding/json"
	"time"

	"net/http"

	"github.com/google/uuid"

	"pos-saas/internal/domain"
	"pos-saas/internal/features"
	"pos-saas/internal/store"
)

type BehaviorHandler struct {
	store store.Store
}

func NewBehaviorHandler(st store.Store) *BehaviorHandler {
	return &BehaviorHandler{store: st}
}

type behaviorRequest struct {
	EventType    string            `json:"eventType"`
	RawData      []json.RawMessage `json:"rawData"`
	Features     map[string]float64 `json:"features"`
	SessionToken string            `json:"sessionToken"`
	TimestampMs  float64           `json:"timestamp_ms"`
}

type rawKeyRecord struct {
	KeyCode   string  `json:"key_code"`
	DownTsMs  float64 `json:"down_ts_ms"`
	UpTsMs    float64 `json:"up_ts_ms"`
	IsSpecial bool    `json:"is_special"`
}

type rawPointerRecord struct {
	Type         string  `json:"type"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Distance     float64 `json:"distance"`
	Velocity     float64 `json:"velocity"`
	DirectionDeg float64 `json:"direction_deg"`
	Button       string  `json:"button"`
	TsMs         float64 `json:"ts_ms"`
}

// Keystroke implements POST /behavior/keystroke.
func (h *BehaviorHandler) Keystroke(w http.ResponseWriter, r *http.Request) {
	var req behaviorRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	sess, err := h.store.GetActiveSessionByToken(r.Context(), req.SessionToken)
	if err != nil {
		RespondError(w, err)
		return
	}

	records := make([]features.KeyRecord, 0, len(req.RawData))
	for _, raw := range req.RawData {
		var rec rawKeyRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			BadRequestResponse(w, "malformed keystroke record: "+err.Error())
			return
		}
		records = append(records, features.KeyRecord{
			KeyCode: rec.KeyCode, DownTsMs: rec.DownTsMs, UpTsMs: rec.UpTsMs, IsSpecial: rec.IsSpecial,
		})
	}

	extracted := features.ExtractKeystroke(records)
	signature := ""
	if len(extracted) > 0 {
		signature = features.Signature(extracted)
	}

	eid := uuid.NewString()
	event := domain.BehavioralEvent{
		EID:               eid,
		SID:               sess.SID,
		Kind:              domain.EventKeystroke,
		ProcessedFeatures: extracted,
		Timestamp:         timestampOf(req.TimestampMs),
	}
	if err := h.store.AppendEvent(r.Context(), event); err != nil {
		RespondError(w, err)
		return
	}

	OKResponse(w, map[string]any{
		"status":             "ok",
		"features_extracted": len(extracted),
		"signature":          signature,
		"event_id":           eid,
	})
}

// Mouse implements POST /behavior/mouse.
func (h *BehaviorHandler) Mouse(w http.ResponseWriter, r *http.Request) {
	var req behaviorRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	sess, err := h.store.GetActiveSessionByToken(r.Context(), req.SessionToken)
	if err != nil {
		RespondError(w, err)
		return
	}

	records := make([]features.PointerRecord, 0, len(req.RawData))
	for _, raw := range req.RawData {
		var rec rawPointerRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			BadRequestResponse(w, "malformed pointer record: "+err.Error())
			return
		}
		kind := features.PointerMove
		if rec.Type == string(features.PointerClick) {
			kind = features.PointerClick
		}
		records = append(records, features.PointerRecord{
			Kind: kind, X: rec.X, Y: rec.Y, Distance: rec.Distance, Velocity: rec.Velocity,
			DirectionDeg: rec.DirectionDeg, Button: rec.Button, TsMs: rec.TsMs,
		})
	}

	extracted := features.ExtractPointer(records)

	eid := uuid.NewString()
	event := domain.BehavioralEvent{
		EID:               eid,
		SID:               sess.SID,
		Kind:              domain.EventPointer,
		ProcessedFeatures: extracted,
		Timestamp:         timestampOf(req.TimestampMs),
	}
	if err := h.store.AppendEvent(r.Context(), event); err != nil {
		RespondError(w, err)
		return
	}

	OKResponse(w, map[string]any{
		"status":             "ok",
		"features_extracted": len(extracted),
		"event_id":           eid,
	})
}

func timestampOf(timestampMs float64) time.Time {
	if timestampMs <= 0 {
		return time.Now()
	}
	return time.UnixMilli(int64(timestampMs))
}
