package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/bitmeme/internal/metrics"
	"github.com/hitoshi/bitmeme/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	RequestObserver   middleware.RequestObserver

	// 運用
	DB             Pinger
	MetricsHandler http.Handler
	Metrics        metrics.MetricsCollector

	// アカウント・認証
	AccountService AccountServiceInterface
	AccountFinder  AccountFinder
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig

	// ソーシャル
	GraphService    GraphServiceInterface
	TimelineService TimelineServiceInterface
	ContentService  ContentServiceInterface
	AccountLister   AccountLister

	// メディア
	MediaStore MediaStore
	MediaRoot  string
	PostConfig PostHandlerConfig
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全体のミドルウェアスタック:
//
//	Recovery → RealIP → Logging → SecurityHeaders → CORS → CSRF
//
// 登録・ログイン系はAuthレート制限、ログイン必須のAPIはSession → Generalレート制限を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	m := deps.Metrics
	if m == nil {
		m = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, deps.RequestObserver))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	presenter := NewPresenter(deps.AccountLister)
	accountHandler := NewAccountHandler(deps.AccountService, m)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, m)
	userHandler := NewUserHandler(deps.AccountFinder, deps.GraphService, deps.TimelineService, presenter, m)
	postHandler := NewPostHandler(deps.ContentService, deps.TimelineService, deps.MediaStore, presenter, deps.PostConfig, m)

	// --- 認証不要のルート ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	r.Method(http.MethodGet, "/media/*", NewMediaHandler(deps.MediaRoot))
	r.Get("/api/accounts/activate/{token}", accountHandler.Activate)

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/api/accounts", accountHandler.Register)
		r.Post("/api/accounts/activation", accountHandler.ResendActivation)
		r.Post("/auth/login", authHandler.Login)
	})

	r.Post("/auth/logout", authHandler.Logout)
	r.Get("/auth/me", authHandler.Me)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/feed", postHandler.Feed)

		r.Route("/api/users/{username}", func(r chi.Router) {
			r.Get("/", userHandler.Profile)
			r.Get("/posts", userHandler.Posts)
			r.Get("/followers", userHandler.Followers)
			r.Get("/following", userHandler.Following)
			r.Post("/follow", userHandler.Follow)
			r.Delete("/follow", userHandler.Unfollow)
		})

		r.Route("/api/posts", func(r chi.Router) {
			r.Post("/", postHandler.CreatePost)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", postHandler.GetPost)
				r.Delete("/", postHandler.DeletePost)
				r.Post("/comments", postHandler.CreateComment)
			})
		})

		r.Delete("/api/comments/{id}", postHandler.DeleteComment)
	})

	return r
}
