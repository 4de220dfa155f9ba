package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/biscuitblog/internal/auth"
	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.LoginAttempt, error)
}

// SessionInterface は認証ハンドラーが必要とするセッション操作。
// session.Managerが実装する。
type SessionInterface interface {
	WriteCookie(w http.ResponseWriter, s *model.Session) error
	ClearCookie(w http.ResponseWriter)
	TokenFromRequest(r *http.Request) string
	Destroy(ctx context.Context, token string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL  string // ログイン完了後のリダイレクト先
	CookieSecure bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionInterface
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, sessions SessionInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		config:   config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// 失敗時はエラー内容を返さず、フロントエンドのログイン画面へauth_failedを付けてリダイレクトする。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// 1. stateの検証（CSRF対策）
	state := query.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	h.clearStateCookie(w)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		h.redirectFailure(w, r)
		return
	}

	// 2. プロバイダー側でのエラー（同意拒否など）
	if providerErr := query.Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error", slog.String("error", providerErr))
		h.redirectFailure(w, r)
		return
	}

	code := query.Get("code")
	if code == "" {
		slog.Warn("oauth callback without code")
		h.redirectFailure(w, r)
		return
	}

	// 3. 認証処理
	attempt, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		if errors.Is(err, auth.ErrEmailNotAllowed) {
			slog.Info("oauth login rejected")
		} else {
			slog.Error("oauth callback failed", slog.String("error", err.Error()))
		}
		h.redirectFailure(w, r)
		return
	}

	// 4. セッションCookieを設定
	if err := h.sessions.WriteCookie(w, attempt.Session); err != nil {
		slog.Error("failed to write session cookie", slog.String("error", err.Error()))
		h.redirectFailure(w, r)
		return
	}

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.FrontendURL, http.StatusFound)
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessions.TokenFromRequest(r); token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.FrontendURL+"/login?error=auth_failed", http.StatusFound)
}

func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
