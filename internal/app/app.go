// Package app は設定の読み込み、依存関係のワイヤリング、サブコマンドの実行を提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/biscuitblog/internal/config"
	"github.com/hitoshi/biscuitblog/internal/database"
	"github.com/hitoshi/biscuitblog/internal/logger"
	"github.com/hitoshi/biscuitblog/internal/seed"
	"github.com/hitoshi/biscuitblog/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envを読み込んでから環境変数を解釈する
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	opts, err := ParseOptions(args, os.Stderr)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if opts.Command == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(opts.Command)),
		slog.String("env", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch opts.Command {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(ctx, cfg, opts)
	case CommandSeed:
		return runSeed(ctx, cfg, opts.SeedFile)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	app, err := Build(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer app.Close()

	// インメモリセッションは別プロセスのworkerから見えないため、API内で掃除する
	if cfg.SessionStore == config.SessionStoreMemory {
		job := cleanup.NewCleanupJob(app.Stores.Sessions, app.Metrics, slog.Default())
		go job.Start(ctx, cfg.SessionCleanupInterval)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除をSESSION_CLEANUP_INTERVAL間隔で実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.SessionStore == config.SessionStoreMemory {
		return errors.New("worker requires SESSION_STORE=database; in-memory sessions are swept by the API process")
	}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	job := cleanup.NewCleanupJob(stores.Sessions, nil, slog.Default())
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 適用後は既定タグを投入する（--no-seedで省略）。--downはすべてのマイグレーションを取り消す。
func runMigrate(ctx context.Context, cfg *config.Config, opts *Options) error {
	if cfg.DatabaseDriver == config.DriverPostgres {
		slog.Info("running database migrations",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
			slog.Bool("down", opts.Down),
		)

		if opts.Down {
			if err := database.RollbackMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migration rollback failed: %w", err)
			}
			slog.Info("database migrations rolled back")
			return nil
		}

		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	} else if opts.Down {
		return fmt.Errorf("migrate --down is not supported for %s", cfg.DatabaseDriver)
	}

	if opts.NoSeed {
		return nil
	}
	// SQLiteはOpenStoresの中でAutoMigrateされる
	return runSeed(ctx, cfg, "")
}

// runSeed は既定タグ（またはfileのタグ）を投入する。既存のタグはスキップする。
func runSeed(ctx context.Context, cfg *config.Config, file string) error {
	var (
		tags []seed.Tag
		err  error
	)
	if file != "" {
		tags, err = seed.LoadTags(file)
	} else {
		tags, err = seed.DefaultTags()
	}
	if err != nil {
		return err
	}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	if _, err := seed.Tags(ctx, stores.Tags, tags); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/api/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
