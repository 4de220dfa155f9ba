package middleware

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// detailは開発環境でのみ呼び出し元が渡す。空の場合は一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter, detail string) {
	msg := "An internal error occurred."
	if detail != "" {
		msg = detail
	}
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  msg,
		Category: "system",
		Action:   "Please wait and try again.",
	})
}

// WriteRouteNotFound は未定義ルートへのリクエストに404を返す。
func WriteRouteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
		Code:     "ROUTE_NOT_FOUND",
		Message:  "Route " + r.Method + " " + r.URL.Path + " not found",
		Category: "system",
		Action:   "Check the request path.",
	})
}

// WriteMethodNotAllowed は許可されていないメソッドに405を返す。
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "Method " + r.Method + " is not allowed for " + r.URL.Path,
		Category: "system",
		Action:   "Check the request method.",
	})
}
