// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// RequestResolver はリクエストのセッションCookieからユーザーを解決するインターフェース。
// session.Managerが実装する。
type RequestResolver interface {
	ResolveRequest(r *http.Request) (*model.User, error)
}

// NewSessionMiddleware はセッションCookieからユーザーを解決し、コンテキストに注入するミドルウェアを返す。
// 未認証のリクエストもそのまま通過させる。認証必須のルートにはRequireAuthを併用する。
func NewSessionMiddleware(resolver RequestResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.ResolveRequest(r)
			if err != nil {
				// ストア障害時は匿名として扱い、公開ルートは継続して提供する
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			markUser(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireAuth は認証済みユーザーがいない場合に401を返すミドルウェア。
// NewSessionMiddlewareの後に配置する。
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
