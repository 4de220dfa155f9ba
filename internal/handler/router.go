package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"

	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/schema"
)

// SessionManager はルーターが必要とするセッション操作。session.Managerが実装する。
type SessionManager interface {
	middleware.RequestResolver
	SessionInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	Metrics            middleware.HTTPRecorder
	MetricsHandler     http.Handler // nilの場合は/metricsを公開しない
	RateLimiter        *middleware.RateLimiter
	CORSAllowedOrigins []string
	TrustProxy         bool
	HSTS               bool
	ExposeErrorDetail  bool // 開発環境でのみtrue

	// 認証
	Sessions    SessionManager
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// コンテンツ
	Validator     *schema.Validator
	PostService   PostServiceInterface
	MemoryService MemoryServiceInterface
	TagService    TagServiceInterface

	// アップロード
	Uploader UploaderInterface
	Objects  ObjectOpener

	// ユーザー
	UserService UserServiceInterface

	// ヘルスチェック
	Pinger Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	ProxyHeaders(TRUST_PROXY時) → Logging → Recovery → SecurityHeaders → CORS → Session
//	/api 配下のみ: Compress → RateLimit(General)
//
// 認証必須のルートにはRequireAuthを個別に付与する。未認証でも閲覧できるルートでは
// セッションが解決できた場合のみユーザーがコンテキストに入る。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.NotFound(middleware.WriteRouteNotFound)
	r.MethodNotAllowed(middleware.WriteMethodNotAllowed)

	if deps.TrustProxy {
		r.Use(handlers.ProxyHeaders)
	}
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware(deps.ExposeErrorDetail))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewSessionMiddleware(deps.Sessions))

	expose := deps.ExposeErrorDetail
	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService, deps.Validator, expose)
	memoryHandler := NewMemoryHandler(deps.MemoryService, deps.Validator, expose)
	tagHandler := NewTagHandler(deps.TagService, deps.Validator, expose)
	uploadHandler := NewUploadHandler(deps.Uploader, deps.Objects, expose)
	userHandler := NewUserHandler(deps.UserService, deps.Sessions, expose)
	healthHandler := NewHealthHandler(deps.Pinger)

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.CompressHandler)
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/health", healthHandler.Health)

		// 認証ルート（OAuthフロー）
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})

		// 記事: GETはスラッグ、PUT/DELETEは数値IDで参照する
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListPosts)
			r.With(middleware.RequireAuth).Post("/", postHandler.CreatePost)

			r.Route("/{ref}", func(r chi.Router) {
				r.Get("/", postHandler.GetPost)
				r.With(middleware.RequireAuth).Put("/", postHandler.UpdatePost)
				r.With(middleware.RequireAuth).Delete("/", postHandler.DeletePost)
			})
		})

		// 思い出
		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryHandler.ListMemories)
			r.With(middleware.RequireAuth).Post("/", memoryHandler.CreateMemory)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memoryHandler.GetMemory)
				r.With(middleware.RequireAuth).Put("/", memoryHandler.UpdateMemory)
				r.With(middleware.RequireAuth).Delete("/", memoryHandler.DeleteMemory)
			})
		})

		// タグ: GETはスラッグ、PUT/DELETEは数値IDで参照する
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.ListTags)
			r.With(middleware.RequireAuth).Post("/", tagHandler.CreateTag)

			r.Route("/{ref}", func(r chi.Router) {
				r.Get("/", tagHandler.GetTag)
				r.With(middleware.RequireAuth).Put("/", tagHandler.UpdateTag)
				r.With(middleware.RequireAuth).Delete("/", tagHandler.DeleteTag)
			})
		})

		// 画像アップロード（アップロード専用レート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.UploadMiddleware())
			}
			r.Post("/uploads/image", uploadHandler.UploadImage)
		})

		// ユーザー管理
		r.With(middleware.RequireAuth).Delete("/users/me", userHandler.Withdraw)
	})

	// 公開済み画像
	r.Get("/uploads/{name}", uploadHandler.ServeUpload)
	r.Head("/uploads/{name}", uploadHandler.ServeUpload)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	return r
}
