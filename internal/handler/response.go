package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeDomainError はビジネスロジック層のエラーをHTTPレスポンスに変換する。
// APIErrorはコード対応のステータスで返し、それ以外は詳細をログに残して
// 一般的な500を返す。
func writeDomainError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	slog.Error("request failed", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
