// Package storage はアップロード済みファイルの保存先（ローカルディレクトリまたはS3）を提供する。
package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"time"
)

// ErrNotFound は指定名のオブジェクトが存在しないことを表す。
var ErrNotFound = errors.New("object not found")

// ErrInvalidName はオブジェクト名が不正であることを表す。
var ErrInvalidName = errors.New("invalid object name")

// validName は公開URLの末尾にそのまま使えるファイル名のみを許可する。
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,254}$`)

// ValidName はオブジェクト名として使用できるかを返す。
func ValidName(name string) bool {
	return validName.MatchString(name) && name != "." && name != ".."
}

// Object は読み出したオブジェクトを表す。Bodyは呼び出し元が閉じる。
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Store は公開ファイルの保存先インターフェース。
type Store interface {
	// Put はオブジェクトを保存する。同名のオブジェクトは置き換える。
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Open はオブジェクトを読み出す。存在しない場合はErrNotFoundを返す。
	Open(ctx context.Context, name string) (*Object, error)
	// Delete はオブジェクトを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, name string) error
}
