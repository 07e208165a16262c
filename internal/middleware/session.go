// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/shifter/internal/roles"
	"github.com/hitoshi/shifter/internal/session"
	"github.com/hitoshi/shifter/internal/shift"
)

// SessionCookieName は署名付きセッションCookieの名前。
const SessionCookieName = "shifter_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var actorContextKey = contextKey("actor")

// payloadContextKey はリクエストコンテキストにセッションペイロードを格納するためのキー。
var payloadContextKey = contextKey("session_payload")

// NewSessionMiddleware は署名付きCookieからセッションを復号し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieの欠落・署名不一致・期限切れはいずれも401 Unauthorizedに落とす。
func NewSessionMiddleware(codec *session.Codec, resolver *roles.Resolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteUnauthorizedResponse(w)
				return
			}

			// Decodeは失敗理由を区別しない。攻撃者に改ざん検知の
			// 手掛かりを与えないため、すべて同じ401にする。
			payload := codec.Decode(cookie.Value)
			if payload == nil {
				WriteUnauthorizedResponse(w)
				return
			}

			claims := payload.User
			actor := shift.Actor{
				ID:            claims.Sub(),
				Name:          claims.Name(),
				Email:         claims.Email(),
				Roles:         resolver.ExtractRoles(claims),
				EmailVerified: claims.EmailVerified(),
			}
			if actor.ID == "" {
				WriteUnauthorizedResponse(w)
				return
			}

			ctx := context.WithValue(r.Context(), actorContextKey, actor)
			ctx = context.WithValue(ctx, payloadContextKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ActorFromContext(ctx context.Context) (shift.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(shift.Actor)
	if !ok || actor.ID == "" {
		return shift.Actor{}, fmt.Errorf("actor not found in context")
	}
	return actor, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return "", err
	}
	return actor.ID, nil
}

// PayloadFromContext はリクエストコンテキストからセッションペイロードを取得する。
// /me のようにクレーム全体を返すハンドラーで使用する。
func PayloadFromContext(ctx context.Context) (*session.Payload, error) {
	payload, ok := ctx.Value(payloadContextKey).(*session.Payload)
	if !ok || payload == nil {
		return nil, fmt.Errorf("session payload not found in context")
	}
	return payload, nil
}

// ContextWithActor はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor shift.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ContextWithPayload はコンテキストにセッションペイロードを注入する。
func ContextWithPayload(ctx context.Context, payload *session.Payload) context.Context {
	return context.WithValue(ctx, payloadContextKey, payload)
}
