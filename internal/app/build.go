package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/biscuitblog/internal/auth"
	"github.com/hitoshi/biscuitblog/internal/config"
	"github.com/hitoshi/biscuitblog/internal/database"
	"github.com/hitoshi/biscuitblog/internal/handler"
	"github.com/hitoshi/biscuitblog/internal/markdown"
	"github.com/hitoshi/biscuitblog/internal/memory"
	"github.com/hitoshi/biscuitblog/internal/metrics"
	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/post"
	"github.com/hitoshi/biscuitblog/internal/repository"
	"github.com/hitoshi/biscuitblog/internal/schema"
	"github.com/hitoshi/biscuitblog/internal/session"
	"github.com/hitoshi/biscuitblog/internal/storage"
	"github.com/hitoshi/biscuitblog/internal/tag"
	"github.com/hitoshi/biscuitblog/internal/upload"
	"github.com/hitoshi/biscuitblog/internal/user"
)

// Stores は永続化層の実装一式。DATABASE_DRIVERとSESSION_STOREに応じて選択される。
type Stores struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Posts    repository.PostRepository
	Memories repository.MemoryRepository
	Tags     repository.TagRepository

	// Pinger はヘルスチェック用のDB接続。
	Pinger handler.Pinger

	close func() error
}

// Close はDB接続を閉じる。
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores は設定に従ってデータベースを開き、リポジトリを構築する。
// PostgreSQLの場合はスキーマがmigrate済みであることを前提とし、
// SQLiteの場合はGORMのAutoMigrateでテーブルを作成する。
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	var stores *Stores

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		stores = &Stores{
			Users:    repository.NewPostgresUserRepo(db),
			Sessions: repository.NewPostgresSessionRepo(db),
			Posts:    repository.NewPostgresPostRepo(db),
			Memories: repository.NewPostgresMemoryRepo(db),
			Tags:     repository.NewPostgresTagRepo(db),
			Pinger:   db,
			close:    db.Close,
		}

	case config.DriverSQLite:
		gdb, err := database.OpenSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		if err := repository.AutoMigrate(gdb); err != nil {
			sqlDB.Close()
			return nil, err
		}

		stores = &Stores{
			Users:    repository.NewGormUserRepo(gdb),
			Sessions: repository.NewGormSessionRepo(gdb),
			Posts:    repository.NewGormPostRepo(gdb),
			Memories: repository.NewGormMemoryRepo(gdb),
			Tags:     repository.NewGormTagRepo(gdb),
			Pinger:   sqlDB,
			close:    sqlDB.Close,
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.SessionStore == config.SessionStoreMemory {
		stores.Sessions = repository.NewMemorySessionRepo()
	}

	slog.Info("database connection established",
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("session_store", cfg.SessionStore),
	)

	return stores, nil
}

// OpenObjectStore は設定に従ってアップロード画像の保存先を構築する。
func OpenObjectStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageLocal:
		store, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageS3:
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// NewOAuthProvider はOAUTH_PROVIDERに応じたプロバイダーを返す。
func NewOAuthProvider(cfg *config.Config) (auth.OAuthProvider, error) {
	switch cfg.OAuthProvider {
	case config.OAuthGoogle:
		return auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
		}), nil
	case config.OAuthFixture:
		slog.Warn("using fixture OAuth provider; every login signs in as the fixture user",
			slog.String("email", cfg.FixtureEmail),
		)
		return auth.NewFixtureProvider(cfg.GoogleCallbackURL, auth.FixtureProfile{
			Email: cfg.FixtureEmail,
			Name:  cfg.FixtureName,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported oauth provider %q", cfg.OAuthProvider)
	}
}

// Application は構築済みのHTTPハンドラーと、その裏側の資源を保持する。
type Application struct {
	Handler  http.Handler
	Stores   *Stores
	Sessions *session.Manager
	Metrics  *metrics.Collector

	rateLimiter *middleware.RateLimiter
}

// Close はレートリミッターを停止し、DB接続を閉じる。
func (a *Application) Close() error {
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	return a.Stores.Close()
}

// Build は設定から全依存関係をワイヤリングし、Applicationを構築する。
// 呼び出し元は使用後にCloseを呼ぶこと。
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, cfg, logger, stores)
	if err != nil {
		return nil, errors.Join(err, stores.Close())
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, stores *Stores) (*Application, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. スキーマとMarkdown
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	renderer := markdown.NewRenderer()

	// 3. セッションと認証
	sessions := session.NewManager(stores.Sessions, stores.Users, session.Config{
		Secret: cfg.SessionSecret,
		MaxAge: time.Duration(cfg.SessionMaxAge) * time.Second,
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	})

	provider, err := NewOAuthProvider(cfg)
	if err != nil {
		return nil, err
	}
	authService := auth.NewService(provider, stores.Users, sessions, collector, auth.ServiceConfig{
		Allowlist:   auth.NewAllowlist(cfg.Allowlist),
		AdminEmails: auth.NewAllowlist(cfg.AdminEmails),
	})

	// 4. アップロード
	objects, err := OpenObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open object storage: %w", err)
	}
	pipeline := upload.NewPipeline(objects, upload.Config{
		TempDir:  cfg.UploadTempDir,
		MaxBytes: cfg.UploadMaxBytes,
	}, collector)

	// 5. ドメインサービス
	postService := post.NewService(stores.Posts, stores.Tags, renderer)
	memoryService := memory.NewService(stores.Memories, renderer)
	tagService := tag.NewService(stores.Tags)
	userService := user.NewService(stores.Users, sessions)

	// 6. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitUpload),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             logger,
		Metrics:            collector,
		MetricsHandler:     metrics.Handler(registry),
		RateLimiter:        rateLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:         cfg.TrustProxy,
		HSTS:               cfg.IsProduction(),
		ExposeErrorDetail:  !cfg.IsProduction(),

		Sessions:    sessions,
		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL:  cfg.FrontendURL,
			CookieSecure: cfg.CookieSecure,
		},

		Validator:     validator,
		PostService:   postService,
		MemoryService: memoryService,
		TagService:    tagService,

		Uploader: pipeline,
		Objects:  objects,

		UserService: userService,
		Pinger:      stores.Pinger,
	})

	return &Application{
		Handler:     router,
		Stores:      stores,
		Sessions:    sessions,
		Metrics:     collector,
		rateLimiter: rateLimiter,
	}, nil
}

var _ handler.Pinger = (*sql.DB)(nil)
