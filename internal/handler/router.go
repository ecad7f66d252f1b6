package handler

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/kakeibo/internal/metrics"
	"github.com/hitoshi/kakeibo/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証
	AuthService AuthServiceInterface
	Sessions    SessionManager

	// ミドルウェア依存
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	TrustProxyHeaders bool // trueの場合のみX-Forwarded-For等からクライアントIPを取得する
	HSTS              bool
	Logger            *slog.Logger

	// 監視
	Metrics        *metrics.Collector // nilの場合は記録しない
	MetricsHandler http.Handler       // nilの場合は/metricsを公開しない
	DB             Pinger             // nilの場合は/healthを公開しない

	// ページ配信
	RouteTable middleware.RouteTable
	WebRoot    fs.FS
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP(任意) → SecurityHeaders → SessionContext → Logging → Metrics
//
// /health と /metrics はセッション解決とアクセスログの対象外。
// ルートガードはページ配信ハンドラーのみを包む。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.HSTS}))

	var recorder metrics.AuthRecorder = metrics.NopRecorder{}
	var guardRecorder middleware.GuardRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
		guardRecorder = deps.Metrics
	}

	if deps.DB != nil {
		r.Get("/health", NewHealthHandler(deps.DB))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, recorder)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionContextMiddleware(deps.Sessions))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewMetricsMiddleware(recorder))

		// 認証API（ルートガードの対象外）
		r.Route("/api/auth", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
		r.Handle("/api/*", http.NotFoundHandler())

		// フロントエンドのページ（ルートガード適用）
		pages := middleware.NewRouteGuard(deps.RouteTable, deps.Sessions, guardRecorder)(NewPageHandler(deps.WebRoot))
		r.Method(http.MethodGet, "/*", pages)
		r.Method(http.MethodHead, "/*", pages)
	})

	return r
}
