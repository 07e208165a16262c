package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/session"
)

type mockAuthService struct {
	authorizeURLFn   func(state, nonce, prompt string) string
	handleCallbackFn func(ctx context.Context, code string) (string, error)
	logoutURLFn      func(returnTo string) string
}

func (m *mockAuthService) AuthorizeURL(state, nonce, prompt string) string {
	if m.authorizeURLFn != nil {
		return m.authorizeURLFn(state, nonce, prompt)
	}
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (string, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return "", errors.New("not implemented")
}

func (m *mockAuthService) LogoutURL(returnTo string) string {
	if m.logoutURLFn != nil {
		return m.logoutURLFn(returnTo)
	}
	return "https://idp.example.com/v2/logout?returnTo=" + url.QueryEscape(returnTo)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "https://app.example.com",
		CookieSecure:  true,
		SessionMaxAge: 28800,
		StateMaxAge:   600,
	}
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	var gotState, gotNonce, gotPrompt string
	svc := &mockAuthService{
		authorizeURLFn: func(state, nonce, prompt string) string {
			gotState, gotNonce, gotPrompt = state, nonce, prompt
			return "https://idp.example.com/authorize"
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	cookies := rec.Result().Cookies()
	stateCookie := cookieByName(cookies, oauthStateCookie)
	nonceCookie := cookieByName(cookies, oauthNonceCookie)
	if stateCookie == nil || nonceCookie == nil {
		t.Fatal("state and nonce cookies should be set")
	}
	if stateCookie.Value != gotState || nonceCookie.Value != gotNonce {
		t.Error("cookie values should match the authorize URL parameters")
	}
	if stateCookie.MaxAge != 600 {
		t.Errorf("state cookie MaxAge = %d, want 600", stateCookie.MaxAge)
	}
	if !stateCookie.HttpOnly || !stateCookie.Secure {
		t.Error("state cookie should be HttpOnly and Secure")
	}
	if gotPrompt != "" {
		t.Errorf("prompt = %q, want empty", gotPrompt)
	}
}

func TestLogin_ForceMapsToPromptLogin(t *testing.T) {
	var gotPrompt string
	svc := &mockAuthService{
		authorizeURLFn: func(_, _, prompt string) string {
			gotPrompt = prompt
			return "https://idp.example.com/authorize"
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login?force=1", nil))

	if gotPrompt != "login" {
		t.Errorf("prompt = %q, want login", gotPrompt)
	}
}

func TestCallback_Success(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(_ context.Context, code string) (string, error) {
			if code != "code-1" {
				t.Errorf("code = %q, want code-1", code)
			}
			return "session-cookie-value", nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=code-1&state=st1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "st1"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://app.example.com" {
		t.Errorf("Location = %q, want base URL", loc)
	}

	cookies := rec.Result().Cookies()
	sess := cookieByName(cookies, middleware.SessionCookieName)
	if sess == nil || sess.Value != "session-cookie-value" {
		t.Fatalf("session cookie = %v, want session-cookie-value", sess)
	}
	if sess.MaxAge != 28800 {
		t.Errorf("session cookie MaxAge = %d, want 28800", sess.MaxAge)
	}

	// フロー途中のCookieは破棄される
	if c := cookieByName(cookies, oauthStateCookie); c == nil || c.MaxAge >= 0 {
		t.Error("state cookie should be cleared")
	}
	if c := cookieByName(cookies, oauthNonceCookie); c == nil || c.MaxAge >= 0 {
		t.Error("nonce cookie should be cleared")
	}
}

func TestCallback_MissingStateCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=c&state=st1", nil)
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, model.ErrCodeStateExpired) {
		t.Errorf("body = %q, want %s", body, model.ErrCodeStateExpired)
	}
}

func TestCallback_StateMismatchRestartsFlow(t *testing.T) {
	called := false
	svc := &mockAuthService{
		handleCallbackFn: func(_ context.Context, _ string) (string, error) {
			called = true
			return "", nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=c&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "st1"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	// エラーではなくログインやり直しのリダイレクトで回復させる
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/auth/login" {
		t.Errorf("Location = %q, want /api/auth/login", loc)
	}
	if called {
		t.Error("token exchange should not happen on state mismatch")
	}
	if c := cookieByName(rec.Result().Cookies(), oauthStateCookie); c == nil || c.MaxAge >= 0 {
		t.Error("state cookie should be cleared")
	}
}

func TestCallback_MissingCode(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state=st1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "st1"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, model.ErrCodeMissingCode) {
		t.Errorf("body = %q, want %s", body, model.ErrCodeMissingCode)
	}
}

func TestCallback_MissingCodeTakesPrecedenceOverState(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	// codeもstateクッキーも無い場合はコード欠落として扱う
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil)
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, model.ErrCodeMissingCode) {
		t.Errorf("body = %q, want %s", body, model.ErrCodeMissingCode)
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("idp unreachable")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=c&state=st1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "st1"})
	rec := httptest.NewRecorder()

	h.Callback(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://app.example.com" {
		t.Errorf("Location = %q, want base URL", loc)
	}
	// セッションだけでなく進行中のフローのCookieもすべて破棄される
	cookies := rec.Result().Cookies()
	for _, name := range []string{middleware.SessionCookieName, oauthStateCookie, oauthNonceCookie} {
		if c := cookieByName(cookies, name); c == nil || c.MaxAge >= 0 {
			t.Errorf("cookie %q should be cleared on logout", name)
		}
	}
}

func TestLogout_SSO(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodGet, "/api/auth/logout?sso=1", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if loc == "https://app.example.com" {
		t.Error("sso=1 should redirect to the IdP logout URL")
	}
	u, err := url.Parse(loc)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if got := u.Query().Get("returnTo"); got != "https://app.example.com" {
		t.Errorf("returnTo = %q, want base URL", got)
	}
}

func TestMe(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	payload := &session.Payload{
		User: model.Claims{"sub": "auth0|u1", "email": "u1@example.com"},
		Exp:  time.Now().Add(time.Hour).Unix(),
	}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(middleware.ContextWithPayload(req.Context(), payload))
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "auth0|u1") || !strings.Contains(body, "u1@example.com") {
		t.Errorf("body = %q, want claims JSON", body)
	}
}

func TestMe_WithoutSession(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
