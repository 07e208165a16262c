// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth (Auth0互換IdP)
	IssuerBaseURL string
	ClientID      string
	ClientSecret  string
	Scope         string

	// Session
	SessionSecret string
	SessionMaxAge int // セッションCookieの有効期間（秒）
	StateMaxAge   int // OAuth state/nonce Cookieの有効期間（秒）

	// Roles
	RolesNamespace string // カスタムクレームの名前空間（未設定の場合はスキップ）
	DefaultRole    string // フォールバックのデフォルトロール（未設定の場合はスキップ）
	ManagerDomain  string // この接尾辞で終わるメールアドレスはmanager扱い
	ManagerKeyword string // この部分文字列を含むメールアドレスはmanager扱い

	// Rate Limit
	RateLimitGeneral int // req/min/user

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（開発用）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IssuerBaseURL = strings.TrimSuffix(os.Getenv("AUTH0_ISSUER_BASE_URL"), "/")
	if cfg.IssuerBaseURL == "" {
		missing = append(missing, "AUTH0_ISSUER_BASE_URL")
	}

	cfg.ClientID = os.Getenv("AUTH0_CLIENT_ID")
	if cfg.ClientID == "" {
		missing = append(missing, "AUTH0_CLIENT_ID")
	}

	cfg.ClientSecret = os.Getenv("AUTH0_CLIENT_SECRET")
	if cfg.ClientSecret == "" {
		missing = append(missing, "AUTH0_CLIENT_SECRET")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = strings.TrimSuffix(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.Scope = getEnvString("AUTH0_SCOPE", "openid profile email")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 28800) // 8時間
	cfg.StateMaxAge = getEnvInt("OAUTH_STATE_MAX_AGE", 600) // 10分
	cfg.RolesNamespace = getEnvString("ROLES_NAMESPACE", "")
	cfg.DefaultRole = getEnvString("DEFAULT_ROLE", "")
	cfg.ManagerDomain = getEnvString("MANAGER_EMAIL_DOMAIN", "@hospital.com")
	cfg.ManagerKeyword = getEnvString("MANAGER_EMAIL_KEYWORD", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
