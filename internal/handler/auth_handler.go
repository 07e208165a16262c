// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shifter/internal/auth"
	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
)

const (
	oauthStateCookie = "shifter_oauth_state"
	oauthNonceCookie = "shifter_oauth_nonce"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	AuthorizeURL(state, nonce, prompt string) string
	HandleCallback(ctx context.Context, code string) (string, error)
	LogoutURL(returnTo string) string
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
	StateMaxAge   int // state/nonce Cookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はOAuth認可コードフローを開始する。
// GET /api/auth/login?prompt=xxx&force=1
// force=1はprompt=loginの別名（再認証の強制）。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateRandomToken()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	nonce, err := auth.GenerateRandomToken()
	if err != nil {
		slog.Error("failed to generate oauth nonce", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// state/nonceをCookieに保存（CSRF・リプレイ対策）
	h.setCookie(w, oauthStateCookie, state, h.config.StateMaxAge)
	h.setCookie(w, oauthNonceCookie, nonce, h.config.StateMaxAge)

	prompt := r.URL.Query().Get("prompt")
	if r.URL.Query().Get("force") == "1" {
		prompt = "login"
	}

	http.Redirect(w, r, h.service.AuthorizeURL(state, nonce, prompt), http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /api/auth/callback?code=xxx&state=yyy
//
// 認可コードが無い場合はフロー不成立（400）。次にstateクッキーが
// 存在しない場合はフロー期限切れ（400）。stateが一致しない場合は
// エラーではなく、クッキーを破棄してログインからやり直す
// リダイレクト（302）で回復させる。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteAPIError(w, model.NewMissingCodeError())
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		middleware.WriteAPIError(w, model.NewStateExpiredError())
		return
	}

	if stateCookie.Value != r.URL.Query().Get("state") {
		slog.Warn("oauth state mismatch, restarting login flow")
		h.clearCookie(w, oauthStateCookie)
		h.clearCookie(w, oauthNonceCookie)
		http.Redirect(w, r, "/api/auth/login", http.StatusFound)
		return
	}

	cookieValue, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, model.NewTokenExchangeError())
		return
	}

	// セッションを発行し、フロー途中のCookieを破棄する
	h.setCookie(w, middleware.SessionCookieName, cookieValue, h.config.SessionMaxAge)
	h.clearCookie(w, oauthStateCookie)
	h.clearCookie(w, oauthNonceCookie)

	http.Redirect(w, r, h.config.BaseURL, http.StatusFound)
}

// Logout はセッションCookieとフロー途中のCookieをすべて破棄する。
// GET|POST /api/auth/logout?sso=1
// 進行中のログインフローもここで打ち切れるよう、state/nonceも消す。
// sso=1の場合はIdP側のSSOセッションも終了させる。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.SessionCookieName)
	h.clearCookie(w, oauthStateCookie)
	h.clearCookie(w, oauthNonceCookie)

	if r.URL.Query().Get("sso") == "1" {
		http.Redirect(w, r, h.service.LogoutURL(h.config.BaseURL), http.StatusFound)
		return
	}
	http.Redirect(w, r, h.config.BaseURL, http.StatusFound)
}

// Me は現在のログインユーザーのクレームを返す。
// GET /api/auth/me および GET /api/auth/profile（互換エイリアス）
// セッションミドルウェアの内側に配置する。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	payload, err := middleware.PayloadFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorizedResponse(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload.User)
}

// setCookie はHTTP Only Cookieを設定する。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie はCookieを即時失効させる。
func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	h.setCookie(w, name, "", -1)
}
