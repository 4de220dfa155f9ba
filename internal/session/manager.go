// Package session はログインセッションの発行・解決・破棄と、Cookieへの格納を提供する。
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
)

// CookieName はセッションCookieの名前。
const CookieName = "session_id"

// DefaultMaxAge はセッションの絶対有効期間。延長はしない。
const DefaultMaxAge = 30 * 24 * time.Hour

// UserFinder はセッションの所有ユーザーを取得するインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// Config はセッションマネージャーの設定。
type Config struct {
	Secret string        // Cookie署名鍵の元になる秘密値
	MaxAge time.Duration // 0の場合はDefaultMaxAge
	Secure bool          // 本番環境ではtrue
	Domain string
}

// Manager はセッションの発行・解決・破棄を行う。
// セッションIDは推測不能な乱数で、Cookieには署名付きで格納する。
type Manager struct {
	sessions repository.SessionRepository
	users    UserFinder
	codec    *securecookie.SecureCookie
	maxAge   time.Duration
	secure   bool
	domain   string
	now      func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(sessions repository.SessionRepository, users UserFinder, cfg Config) *Manager {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	hashKey := sha256.Sum256([]byte(cfg.Secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(int(maxAge / time.Second))

	return &Manager{
		sessions: sessions,
		users:    users,
		codec:    codec,
		maxAge:   maxAge,
		secure:   cfg.Secure,
		domain:   cfg.Domain,
		now:      time.Now,
	}
}

// Create は指定ユーザーの新しいセッションを発行する。
func (m *Manager) Create(ctx context.Context, userID int64) (*model.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(m.maxAge),
		CreatedAt: now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return s, nil
}

// Resolve はセッションIDから現在のユーザーを取得する。
// セッションが存在しない・期限切れ・ユーザーが削除済みの場合はnilを返す。
// ユーザー情報は毎回ストアから取得し直すため、ロール変更は即座に反映される。
func (m *Manager) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	s, err := m.sessions.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if s == nil || s.Expired(m.now()) {
		return nil, nil
	}

	user, err := m.users.FindByID(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session user: %w", err)
	}
	return user, nil
}

// Destroy はセッションを破棄する。存在しないセッションでもエラーにしない。
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.sessions.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DestroyAll は指定ユーザーの全セッションを破棄する。
func (m *Manager) DestroyAll(ctx context.Context, userID int64) error {
	if err := m.sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to destroy user sessions: %w", err)
	}
	return nil
}

// WriteCookie はセッションIDを署名してCookieに書き込む。
func (m *Manager) WriteCookie(w http.ResponseWriter, s *model.Session) error {
	encoded, err := m.codec.Encode(CookieName, s.ID)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   m.domain,
		Expires:  s.ExpiresAt,
		MaxAge:   int(s.ExpiresAt.Sub(m.now()) / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie はセッションCookieを削除する。
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest はリクエストのCookieからセッションIDを取り出す。
// Cookieがない、または署名が不正な場合は空文字列を返す。
func (m *Manager) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	var id string
	if err := m.codec.Decode(CookieName, cookie.Value, &id); err != nil {
		slog.Debug("invalid session cookie", slog.String("error", err.Error()))
		return ""
	}
	return id
}

// ResolveRequest はリクエストのCookieから現在のユーザーを取得する。
func (m *Manager) ResolveRequest(r *http.Request) (*model.User, error) {
	return m.Resolve(r.Context(), m.TokenFromRequest(r))
}

// newSessionID は256ビットの乱数から16進文字列のセッションIDを生成する。
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
