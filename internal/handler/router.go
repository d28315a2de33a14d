package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/neocal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 共通
	Logger         *slog.Logger
	Metrics        middleware.HTTPStatusRecorder // nil可
	MetricsHandler http.Handler                  // nilの場合 /metrics を公開しない

	// ミドルウェア依存
	APIPrefix         string
	CORSAllowedOrigin string
	Authenticator     middleware.SessionAuthenticator
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface
	MealService MealServiceInterface
	Readiness   Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → RateLimit(General) → RateLimit(MealLog)
//
// ヘルスチェックと匿名セッション発行は認証不要。/metrics はAPIプレフィックスの外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	if deps.APIPrefix == "" {
		r.Group(func(r chi.Router) { mountAPI(r, deps) })
	} else {
		r.Route(deps.APIPrefix, func(r chi.Router) { mountAPI(r, deps) })
	}

	return r
}

// mountAPI はAPIプレフィックス配下のルートを登録する。
func mountAPI(r chi.Router, deps *RouterDeps) {
	healthHandler := NewHealthHandler(deps.Readiness)
	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	mealHandler := NewMealHandler(deps.MealService)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	// 匿名セッション発行はユーザーを作成し得るため、接続元IPごとに制限する
	r.With(deps.RateLimiter.SessionIssueMiddleware()).Post("/session/anonymous", authHandler.CreateAnonymousSession)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/session/logout", authHandler.Logout)

		// ユーザー
		r.Route("/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetProfile)
			r.Patch("/me", userHandler.UpdateProfile)
			r.Get("/{user_id}", userHandler.GetProfile)
			r.Patch("/{user_id}", userHandler.UpdateProfile)
		})

		// 食事記録（記録系は専用レート制限を追加）
		r.Route("/meals", func(r chi.Router) {
			r.Get("/", mealHandler.ListMeals)
			r.Get("/daily-summary", mealHandler.DailySummary)
			r.Get("/{meal_id}", mealHandler.GetMeal)

			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.MealLogMiddleware())
				r.Post("/text", mealHandler.LogText)
				r.Post("/image", mealHandler.LogImage)
				r.Post("/barcode", mealHandler.LogBarcode)
			})
		})
	})
}
