package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Withdraw はユーザーの退会処理を実行する。
	// セッションを全て破棄した後、ユーザーを削除する。記事と思い出はCASCADE削除される。
	Withdraw(ctx context.Context, userID int64) error
}

// CookieClearer はセッションCookieを削除するインターフェース。
type CookieClearer interface {
	ClearCookie(w http.ResponseWriter)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	responder
	service UserServiceInterface
	cookies CookieClearer
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, cookies CookieClearer, exposeDetail bool) *UserHandler {
	return &UserHandler{
		responder: responder{exposeDetail: exposeDetail},
		service:   service,
		cookies:   cookies,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), user.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.cookies.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
