package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/shift"
)

// ShiftLedgerInterface はシフトハンドラーが必要とするサービスインターフェース。
type ShiftLedgerInterface interface {
	ClockIn(ctx context.Context, actor shift.Actor, req shift.ClockRequest) (*model.Shift, error)
	ClockOut(ctx context.Context, actor shift.Actor, req shift.ClockRequest) (*model.Shift, error)
	ListShifts(ctx context.Context, actor shift.Actor) ([]model.ShiftWithUser, error)
	ComputeMetrics(ctx context.Context, actor shift.Actor) (*model.MetricsReport, error)
}

// ShiftHandler は打刻・シフト参照のHTTPハンドラー。
type ShiftHandler struct {
	ledger ShiftLedgerInterface
}

// NewShiftHandler はShiftHandlerを生成する。
func NewShiftHandler(ledger ShiftLedgerInterface) *ShiftHandler {
	return &ShiftHandler{ledger: ledger}
}

// clockRequestBody は打刻リクエストのボディ。
// lat/lng/clockInNoteは旧クライアントとの互換エイリアス。
type clockRequestBody struct {
	Action string `json:"action"`

	Latitude  *float64 `json:"latitude"`
	Lat       *float64 `json:"lat"`
	Longitude *float64 `json:"longitude"`
	Lng       *float64 `json:"lng"`

	Note        *string `json:"note"`
	ClockInNote *string `json:"clockInNote"`
}

// toClockRequest は正規名を優先してエイリアスを畳み込む。
func (b *clockRequestBody) toClockRequest() shift.ClockRequest {
	req := shift.ClockRequest{
		Latitude:  b.Latitude,
		Longitude: b.Longitude,
		Note:      b.Note,
	}
	if req.Latitude == nil {
		req.Latitude = b.Lat
	}
	if req.Longitude == nil {
		req.Longitude = b.Lng
	}
	if req.Note == nil {
		req.Note = b.ClockInNote
	}
	return req
}

// shiftResponse はシフト1件のレスポンス表現。
type shiftResponse struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	UserName     string   `json:"userName,omitempty"`
	UserEmail    string   `json:"userEmail,omitempty"`
	ClockInAt    int64    `json:"clockInAt"`
	ClockInLat   *float64 `json:"clockInLat"`
	ClockInLng   *float64 `json:"clockInLng"`
	ClockInNote  *string  `json:"clockInNote"`
	ClockOutAt   *int64   `json:"clockOutAt"`
	ClockOutLat  *float64 `json:"clockOutLat"`
	ClockOutLng  *float64 `json:"clockOutLng"`
	ClockOutNote *string  `json:"clockOutNote"`
}

func toShiftResponse(s model.ShiftWithUser) shiftResponse {
	return shiftResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		UserName:     s.UserName,
		UserEmail:    s.UserEmail,
		ClockInAt:    s.ClockInAt,
		ClockInLat:   s.ClockInLat,
		ClockInLng:   s.ClockInLng,
		ClockInNote:  s.ClockInNote,
		ClockOutAt:   s.ClockOutAt,
		ClockOutLat:  s.ClockOutLat,
		ClockOutLng:  s.ClockOutLng,
		ClockOutNote: s.ClockOutNote,
	}
}

// List はシフト一覧を返す。
// GET /api/shifts
// マネージャーは全員分、それ以外は自分の分のみ。
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedResponse(w)
		return
	}

	shifts, err := h.ledger.ListShifts(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]shiftResponse, 0, len(shifts))
	for _, s := range shifts {
		out = append(out, toShiftResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// Clock は出勤・退勤の打刻を行う。
// POST /api/shifts  body: {"action": "clockIn"|"clockOut", ...}
// actionは旧クライアント互換で "in"/"out" も受け付ける。
func (h *ShiftHandler) Clock(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedResponse(w)
		return
	}

	var body clockRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidPayloadError("JSONとして解釈できません"))
		return
	}

	req := body.toClockRequest()

	switch body.Action {
	case "clockIn", "in":
		created, err := h.ledger.ClockIn(r.Context(), actor, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"id":        created.ID,
			"clockInAt": created.ClockInAt,
		})
	case "clockOut", "out":
		closed, err := h.ledger.ClockOut(r.Context(), actor, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         true,
			"id":         closed.ID,
			"clockOutAt": closed.ClockOutAt,
		})
	default:
		middleware.WriteAPIError(w, model.NewInvalidActionError(body.Action))
	}
}

// Analytics は直近7日間の勤務集計を返す。マネージャー専用。
// GET /api/analytics
func (h *ShiftHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedResponse(w)
		return
	}

	report, err := h.ledger.ComputeMetrics(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
