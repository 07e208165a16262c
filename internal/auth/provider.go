// Package auth はOAuth2認可コードフロー、セッション発行を提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Tokens はIdPのトークンエンドポイントから得たトークン一式。
type Tokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Provider はOAuth2/OIDC IdPのインターフェース。
// Auth0互換のエンドポイント形状を前提とする。
type Provider interface {
	// AuthorizeURL は認可エンドポイントへのリダイレクトURLを生成する。
	// promptが空でない場合はパススルーする。
	AuthorizeURL(state, nonce, prompt string) string
	// ExchangeCode は認可コードをトークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*Tokens, error)
	// LogoutURL はIdPのSSOログアウトURLを生成する。
	LogoutURL(returnTo string) string
}

// ProviderConfig はAuth0ProviderのIdP設定。
type ProviderConfig struct {
	IssuerBaseURL string // 例: https://tenant.auth0.com （末尾スラッシュなし）
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Scope         string
}

// Auth0Provider はAuth0互換IdPに対するProviderの実装。
type Auth0Provider struct {
	config     ProviderConfig
	httpClient *http.Client
}

// NewAuth0Provider はAuth0Providerを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewAuth0Provider(config ProviderConfig, httpClient *http.Client) *Auth0Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Auth0Provider{config: config, httpClient: httpClient}
}

// AuthorizeURL は認可エンドポイントへのリダイレクトURLを生成する。
func (p *Auth0Provider) AuthorizeURL(state, nonce, prompt string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"scope":         {p.config.Scope},
		"state":         {state},
		"nonce":         {nonce},
	}
	if prompt != "" {
		params.Set("prompt", prompt)
	}
	return p.config.IssuerBaseURL + "/authorize?" + params.Encode()
}

// ExchangeCode は認可コードをトークンに交換する。
// 非2xxレスポンスはこのリクエストにとって致命的なエラーとして返す。
// このレイヤーではリトライしない（必要ならHTTPトランスポート側の責務）。
func (p *Auth0Provider) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.IssuerBaseURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokens Tokens
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokens, nil
}

// LogoutURL はIdPのSSOログアウトURLを生成する。
// returnToは事前にIdP側のAllowed Logout URLsに登録されている必要がある。
func (p *Auth0Provider) LogoutURL(returnTo string) string {
	params := url.Values{
		"client_id": {p.config.ClientID},
		"returnTo":  {returnTo},
	}
	return p.config.IssuerBaseURL + "/v2/logout?" + params.Encode()
}

// compile-time interface check
var _ Provider = (*Auth0Provider)(nil)
