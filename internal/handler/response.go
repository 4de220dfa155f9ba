// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/schema"
)

// maxJSONBodyBytes はJSONリクエストボディの上限。
const maxJSONBodyBytes = 1 << 20

// responder はエラーレスポンスの書き込み方針を保持する。
// exposeDetailがtrue（開発環境）の場合のみ内部エラーの詳細をメッセージに含める。
type responder struct {
	exposeDetail bool
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一フォーマットでAPIエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func (rs responder) handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	detail := ""
	if rs.exposeDetail {
		detail = err.Error()
	}
	middleware.WriteInternalServerError(w, detail)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeUnsupportedMedia:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// readJSONBody はボディを上限付きで読み込む。
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.NewValidationError("request body too large")
		}
		return nil, model.NewValidationError("failed to read request body")
	}
	return body, nil
}

// decodeBody はボディをスキーマで検証してdstにデコードする。
// スキーマ違反はVALIDATION_ERRORに変換する。
func decodeBody(w http.ResponseWriter, r *http.Request, v *schema.Validator, schemaID string, dst any) ([]byte, error) {
	body, err := readJSONBody(w, r)
	if err != nil {
		return nil, err
	}
	if err := v.Decode(schemaID, body, dst); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return nil, model.NewValidationError(verr.Error())
		}
		return nil, err
	}
	return body, nil
}

// hasField はJSONオブジェクトに指定キーが存在するかを返す。nullの値も存在として扱う。
func hasField(body []byte, key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	_, ok := fields[key]
	return ok
}

// pathID はURLパラメータを正の整数IDとして取り出す。
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id must be a positive integer")
	}
	return id, nil
}

// queryInt はクエリパラメータを整数として取り出す。未指定の場合は0を返す。
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(name + " must be an integer")
	}
	return n, nil
}

// queryBool はクエリパラメータを真偽値として取り出す。不正な値はfalseとして扱う。
func queryBool(r *http.Request, name string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && b
}
