package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/shifter/internal/metrics"
	"github.com/hitoshi/shifter/internal/middleware"
	"github.com/hitoshi/shifter/internal/repository"
	"github.com/hitoshi/shifter/internal/roles"
	"github.com/hitoshi/shifter/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.AppMetrics
	SessionCodec      *session.Codec
	RoleResolver      *roles.Resolver
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// シフト・集計
	Ledger ShiftLedgerInterface

	// 設定・オフィス状態
	SettingRepo repository.SettingRepository
	OfficeGate  OfficeGateInterface

	// 死活監視・メトリクス公開
	DB       Pinger
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → (Session → RateLimit)
//
// 認証ルート（/api/auth/login等）と公開参照ルートはセッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	shiftHandler := NewShiftHandler(deps.Ledger)
	perimeterHandler := NewPerimeterHandler(deps.SettingRepo)
	officeHandler := NewOfficeHandler(deps.OfficeGate)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// OAuthフロー
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.Post("/logout", authHandler.Logout)
	})

	// 公開参照（打刻画面の初期表示用）
	r.Get("/api/perimeter", perimeterHandler.Get)
	r.Get("/api/office-status", officeHandler.Get)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionCodec, deps.RoleResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション情報
		r.Get("/api/auth/me", authHandler.Me)
		r.Get("/api/auth/profile", authHandler.Me) // 互換エイリアス

		// 打刻・シフト参照
		r.Route("/api/shifts", func(r chi.Router) {
			r.Get("/", shiftHandler.List)
			// POST /api/shifts - 打刻（書き込み専用レート制限を追加）
			r.With(deps.RateLimiter.ClockMiddleware()).Post("/", shiftHandler.Clock)
		})

		// 勤務集計（マネージャー専用）
		r.Get("/api/analytics", shiftHandler.Analytics)

		// ジオフェンス・オフィス開閉の更新（マネージャー専用）
		r.Post("/api/perimeter", perimeterHandler.Update)
		r.Post("/api/office-status", officeHandler.Update)
	})

	return r
}
