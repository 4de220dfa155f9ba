// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 実行環境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// データベースドライバ
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// セッションストア
const (
	SessionStoreDatabase = "database"
	SessionStoreMemory   = "memory"
)

// OAuthプロバイダー
const (
	OAuthGoogle  = "google"
	OAuthFixture = "fixture"
)

// ストレージドライバ
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	Environment string
	LogLevel    string

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// OAuth
	OAuthProvider      string
	FixtureEmail       string
	FixtureName        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	Allowlist          []string
	AdminEmails        []string

	// Session
	SessionSecret          string
	SessionStore           string
	SessionMaxAge          int // 秒
	SessionCleanupInterval time.Duration

	// Upload
	UploadDir      string
	UploadTempDir  string
	UploadMaxBytes int64

	// Storage
	StorageDriver     string
	S3Bucket          string
	S3Region          string
	S3Prefix          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitUpload  int

	// Server
	ServerPort    string
	PublicBaseURL string
	FrontendURL   string
	TrustProxy    bool

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigins []string
}

// IsProduction は本番環境として設定されているかを返す。
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// LoadDotEnv は.envファイルを環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や、列挙値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	// fixtureプロバイダーではGoogleの認証情報は不要
	cfg.OAuthProvider = getEnvString("OAUTH_PROVIDER", OAuthGoogle)
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.OAuthProvider == OAuthGoogle {
		if cfg.GoogleClientID == "" {
			missing = append(missing, "GOOGLE_CLIENT_ID")
		}
		if cfg.GoogleClientSecret == "" {
			missing = append(missing, "GOOGLE_CLIENT_SECRET")
		}
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.Environment = getEnvString("APP_ENV", EnvDevelopment)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.DatabaseDriver = getEnvString("DATABASE_DRIVER", DriverPostgres)
	cfg.SessionStore = getEnvString("SESSION_STORE", SessionStoreDatabase)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 30*24*60*60)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.Allowlist = getEnvList("ALLOWLIST")
	cfg.FixtureEmail = getEnvString("FIXTURE_USER_EMAIL", "dev@localhost")
	cfg.FixtureName = getEnvString("FIXTURE_USER_NAME", "Developer")
	cfg.AdminEmails = getEnvList("ADMIN_EMAILS")

	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.UploadTempDir = getEnvString("UPLOAD_TEMP_DIR", filepath.Join(os.TempDir(), "biscuitblog-uploads"))
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 5*1024*1024)

	cfg.StorageDriver = getEnvString("STORAGE_DRIVER", StorageLocal)
	cfg.S3Bucket = getEnvString("S3_BUCKET", "")
	cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
	cfg.S3Prefix = getEnvString("S3_PREFIX", "")
	cfg.S3Endpoint = getEnvString("S3_ENDPOINT", "")
	cfg.S3AccessKeyID = getEnvString("S3_ACCESS_KEY_ID", "")
	cfg.S3SecretAccessKey = getEnvString("S3_SECRET_ACCESS_KEY", "")

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.PublicBaseURL = strings.TrimRight(getEnvString("PUBLIC_BASE_URL", "http://localhost:"+cfg.ServerPort), "/")
	cfg.GoogleCallbackURL = getEnvString("GOOGLE_CALLBACK_URL", cfg.PublicBaseURL+"/api/auth/google/callback")
	cfg.FrontendURL = normalizeOrigin(getEnvString("FRONTEND_URL", "http://localhost:5173"))
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)

	cfg.CookieSecure = cfg.IsProduction()
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	cfg.CORSAllowedOrigins = []string{cfg.FrontendURL}
	for _, o := range getEnvList("CORS_EXTRA_ORIGINS") {
		cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, normalizeOrigin(o))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は列挙値と項目間の整合性を検証する。
func (c *Config) validate() error {
	var errs []error

	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment))
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver))
	}

	switch c.SessionStore {
	case SessionStoreDatabase, SessionStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreDatabase, SessionStoreMemory, c.SessionStore))
	}

	switch c.OAuthProvider {
	case OAuthGoogle:
	case OAuthFixture:
		if c.IsProduction() {
			errs = append(errs, errors.New("OAUTH_PROVIDER=fixture is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("OAUTH_PROVIDER must be %q or %q, got %q", OAuthGoogle, OAuthFixture, c.OAuthProvider))
	}

	switch c.StorageDriver {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_DRIVER is s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageLocal, StorageS3, c.StorageDriver))
	}

	if c.SessionMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_AGE must be positive, got %d", c.SessionMaxAge))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes))
	}

	return errors.Join(errs...)
}

// normalizeOrigin はスキームのないオリジンにhttps://を補い、末尾のスラッシュを除去する。
func normalizeOrigin(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return origin
	}
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		origin = "https://" + origin
	}
	return origin
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvList はカンマ区切りの環境変数を分割する。空要素は除外する。
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
