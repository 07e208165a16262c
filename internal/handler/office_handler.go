package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
)

// OfficeGateInterface はオフィス開閉ハンドラーが必要とするインターフェース。
type OfficeGateInterface interface {
	Read(ctx context.Context) (*model.OfficeStatus, error)
	Set(ctx context.Context, isActive bool, actingUserID string) (*model.OfficeStatus, error)
}

// OfficeHandler はオフィス開閉スイッチのHTTPハンドラー。
type OfficeHandler struct {
	gate OfficeGateInterface
}

// NewOfficeHandler はOfficeHandlerを生成する。
func NewOfficeHandler(gate OfficeGateInterface) *OfficeHandler {
	return &OfficeHandler{gate: gate}
}

// officeStatusResponse はオフィス状態のレスポンス表現。
type officeStatusResponse struct {
	ID          string  `json:"id"`
	IsActive    bool    `json:"isActive"`
	ActivatedBy *string `json:"activatedBy"`
	ActivatedAt *int64  `json:"activatedAt"`
	UpdatedAt   int64   `json:"updatedAt"`
}

func toOfficeStatusResponse(s *model.OfficeStatus) officeStatusResponse {
	return officeStatusResponse{
		ID:          s.ID,
		IsActive:    s.IsActive,
		ActivatedBy: s.ActivatedBy,
		ActivatedAt: s.ActivatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Get は現在のオフィス状態を返す。
// GET /api/office-status（認証不要。打刻画面の初期表示で参照する）
func (h *OfficeHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.gate.Read(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfficeStatusResponse(status))
}

// officeUpdateBody はオフィス開閉リクエストのボディ。
type officeUpdateBody struct {
	IsActive *bool `json:"isActive"`
}

// Update はオフィスの開閉状態を切り替える。マネージャー専用。
// POST /api/office-status  body: {"isActive": true|false}
func (h *OfficeHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedResponse(w)
		return
	}
	if !actor.IsManager() {
		middleware.WriteAPIError(w, model.NewManagerRequiredError())
		return
	}

	var body officeUpdateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidPayloadError("JSONとして解釈できません"))
		return
	}
	if body.IsActive == nil {
		middleware.WriteAPIError(w, model.NewInvalidPayloadError("isActiveは必須です"))
		return
	}

	status, err := h.gate.Set(r.Context(), *body.IsActive, actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	message := "オフィスをクローズしました。"
	if status.IsActive {
		message = "オフィスをオープンしました。"
	}
	slog.Info("office status changed",
		slog.String("user_id", actor.ID),
		slog.Bool("is_active", status.IsActive),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": message,
		"status":  toOfficeStatusResponse(status),
	})
}
