// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, upload, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
	ErrCodeUploadFailed     = "UPLOAD_FAILED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewValidationError は入力値不正エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request fields and try again.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "Sign in and try again.",
	}
}

// NewForbiddenError は認可エラーを生成する。
// 認証済みだが操作対象の所有者でも管理者でもない場合に使用する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to modify this resource",
		Category: "auth",
		Action:   "Only the author or an administrator can perform this action.",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Category: "content",
		Action:   "Check the identifier and try again.",
	}
}

// NewConflictError は一意制約違反エラーを生成する。
func NewConflictError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("%s already exists", field),
		Category: "validation",
		Action:   "Choose a different value.",
	}
}

// NewUnsupportedMediaError はアップロード拒否エラーを生成する。
func NewUnsupportedMediaError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMedia,
		Message:  fmt.Sprintf("Unsupported upload: %s", reason),
		Category: "upload",
		Action:   "Upload a JPEG, PNG, GIF or WebP image of at most 5 MB.",
	}
}

// NewUploadFailedError は画像変換失敗エラーを生成する。
// 内部の詳細は含めない。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "Failed to process image",
		Category: "upload",
		Action:   "Try a different image.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Sign in again.",
	}
}
