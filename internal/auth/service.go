package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/shifter/internal/metrics"
	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/repository"
	"github.com/hitoshi/shifter/internal/roles"
	"github.com/hitoshi/shifter/internal/session"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// Service は認証フローのビジネスロジックを提供する。
// 途中状態はstate/nonceの2つの短命Cookie以外に持たない。
type Service struct {
	provider Provider
	userRepo repository.UserRepository
	resolver *roles.Resolver
	codec    *session.Codec
	metrics  metrics.AppMetrics
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	provider Provider,
	userRepo repository.UserRepository,
	resolver *roles.Resolver,
	codec *session.Codec,
	m metrics.AppMetrics,
	config ServiceConfig,
) *Service {
	return &Service{
		provider: provider,
		userRepo: userRepo,
		resolver: resolver,
		codec:    codec,
		metrics:  m,
		config:   config,
	}
}

// AuthorizeURL は認可エンドポイントへのリダイレクトURLを生成する。
func (s *Service) AuthorizeURL(state, nonce, prompt string) string {
	return s.provider.AuthorizeURL(state, nonce, prompt)
}

// LogoutURL はIdPのSSOログアウトURLを生成する。
func (s *Service) LogoutURL(returnTo string) string {
	return s.provider.LogoutURL(returnTo)
}

// HandleCallback は認可コードをトークンに交換し、セッションCookie値を発行する。
// IDトークンのクレームからユーザーレコードをupsertする。
// ユーザー永続化の失敗はログインを妨げない（警告ログのみ）。
func (s *Service) HandleCallback(ctx context.Context, code string) (string, error) {
	start := time.Now()
	tokens, err := s.provider.ExchangeCode(ctx, code)
	s.metrics.RecordTokenExchange(time.Since(start), err == nil)
	if err != nil {
		return "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	claims := DecodeIDTokenClaims(tokens.IDToken)
	roleSet := s.resolver.ExtractRoles(claims)

	// ロールを解決済みの形でクレームに焼き込む
	enriched := model.Claims{}
	for k, v := range claims {
		enriched[k] = v
	}
	enriched["roles"] = roleSet

	if sub := claims.Sub(); sub != "" {
		user := &model.User{
			ID:            sub,
			Name:          claims.Name(),
			Email:         claims.Email(),
			Role:          roleSet[0],
			EmailVerified: claims.EmailVerified(),
		}
		if err := s.userRepo.Upsert(ctx, user); err != nil {
			slog.Warn("user persistence failed",
				slog.String("user_id", sub),
				slog.String("error", err.Error()),
			)
		} else {
			slog.Info("user logged in",
				slog.String("user_id", sub),
				slog.String("role", roleSet[0]),
			)
		}
	}

	cookieValue, err := s.codec.Encode(&session.Payload{
		User:        enriched,
		AccessToken: tokens.AccessToken,
		IDToken:     tokens.IDToken,
		Exp:         claims.Exp(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	return cookieValue, nil
}

// SessionMaxAge はセッションCookieの有効期間（秒）を返す。
func (s *Service) SessionMaxAge() int {
	return s.config.SessionMaxAge
}

// DecodeIDTokenClaims はIDトークンのクレーム部をデコードする。
// IdPの署名は検証しない。トークンはIdPとの直接のTLSチャネル経由で
// 受領したものであることを信頼する。デコードに失敗した場合は
// 空のクレームを返す（コールバック自体は失敗させない）。
func DecodeIDTokenClaims(idToken string) model.Claims {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		slog.Error("failed to decode id token claims", slog.String("error", err.Error()))
		return model.Claims{}
	}
	return model.Claims(claims)
}

// GenerateRandomToken はCSRF対策用のstate/nonce値を生成する（16バイトのhex）。
func GenerateRandomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
