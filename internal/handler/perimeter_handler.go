package handler

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/repository"
)

// PerimeterHandler はジオフェンス設定のHTTPハンドラー。
type PerimeterHandler struct {
	settingRepo repository.SettingRepository
}

// NewPerimeterHandler はPerimeterHandlerを生成する。
func NewPerimeterHandler(settingRepo repository.SettingRepository) *PerimeterHandler {
	return &PerimeterHandler{settingRepo: settingRepo}
}

// Get は現在のジオフェンス設定を正規形で返す。
// GET /api/perimeter（認証不要。従業員は打刻前に現在地と比較して表示する）
// 未設定・解釈不能の場合はnullを返す。
func (h *PerimeterHandler) Get(w http.ResponseWriter, r *http.Request) {
	value, found, err := h.settingRepo.Get(r.Context(), repository.PerimeterKey)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	perimeter, err := repository.NormalizePerimeter(value)
	if err != nil {
		slog.Warn("stored perimeter is malformed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, perimeter)
}

// perimeterRequestBody はジオフェンス更新リクエストのボディ。
// radiusMetersは旧クライアントとの互換エイリアス。
type perimeterRequestBody struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Radius       *float64 `json:"radius"`
	RadiusMeters *float64 `json:"radiusMeters"`
}

// Update はジオフェンス設定を更新する。マネージャー専用。
// POST /api/perimeter
func (h *PerimeterHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedResponse(w)
		return
	}
	if !actor.IsManager() {
		middleware.WriteAPIError(w, model.NewManagerRequiredError())
		return
	}

	var body perimeterRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidPayloadError("JSONとして解釈できません"))
		return
	}

	if body.Latitude == nil || body.Longitude == nil ||
		math.IsNaN(*body.Latitude) || math.IsNaN(*body.Longitude) {
		middleware.WriteAPIError(w, model.NewInvalidCoordinatesError())
		return
	}

	radius := body.Radius
	if radius == nil {
		radius = body.RadiusMeters
	}
	if radius == nil {
		middleware.WriteAPIError(w, model.NewInvalidPayloadError("radiusは必須です"))
		return
	}

	perimeter := model.Perimeter{
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
		Radius:    *radius,
	}
	raw, err := repository.MarshalPerimeter(perimeter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.settingRepo.Upsert(r.Context(), repository.PerimeterKey, raw); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("perimeter updated",
		slog.String("user_id", actor.ID),
		slog.Float64("radius", perimeter.Radius),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"perimeter": perimeter,
	})
}
