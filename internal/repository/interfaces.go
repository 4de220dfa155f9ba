// Package repository はデータ永続化のインターフェースと実装を提供する。
//
// 実装はPostgreSQL（database/sql + lib/pq）、GORM（SQLite）、
// セッションのみインメモリの3系統があり、起動時の設定で選択する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// ErrNegativeOffset は負のオフセットを表す。
// GORMは負のOffsetを黙って無視するため、先頭ページを返さないよう明示的に拒否する。
var ErrNegativeOffset = errors.New("negative offset")

// ErrForeignKey は外部キー制約違反を表す。
var ErrForeignKey = errors.New("foreign key violation")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、生成されたID・タイムスタンプをuserに設定する。
	Create(ctx context.Context, user *model.User) error

	// SetGoogleIDIfUnset はgoogle_idが未設定の場合のみ設定する。
	// 設定した場合はtrue、既に設定済みだった場合はfalseを返す。
	SetGoogleIDIfUnset(ctx context.Context, id int64, googleID string) (bool, error)

	// UpdateRole はユーザーのロールを更新する。
	UpdateRole(ctx context.Context, id int64, role model.Role) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するposts、memories、post_tags、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
	// DeleteExpired は指定時刻までに期限切れとなったセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostRepository は記事データの永続化インターフェース。
// 返却する記事にはタグが読み込まれている。
type PostRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Post, error)

	// FindBySlug はスラッグで記事を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)

	// List は条件に一致する記事を published_at 降順（NULLは末尾）、id降順で返す。
	List(ctx context.Context, filter model.PostListFilter) ([]*model.Post, error)

	// Create は記事とタグの紐付けを同一トランザクションで作成する。
	Create(ctx context.Context, post *model.Post, tagIDs []int64) error

	// Update は記事を更新する。tagIDsがnilの場合はタグの紐付けを変更しない。
	Update(ctx context.Context, post *model.Post, tagIDs []int64) error

	// DeleteByID は指定IDの記事を削除する。post_tagsはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// MemoryRepository は思い出データの永続化インターフェース。
type MemoryRepository interface {
	// FindByID は指定IDの思い出を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Memory, error)

	// List は思い出を date 降順、id降順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.Memory, error)

	// Create は思い出を作成する。
	Create(ctx context.Context, memory *model.Memory) error

	// Update は思い出を更新する。
	Update(ctx context.Context, memory *model.Memory) error

	// DeleteByID は指定IDの思い出を削除する。
	DeleteByID(ctx context.Context, id int64) error
}

// TagRepository はタグデータの永続化インターフェース。
type TagRepository interface {
	// List は全タグを名前順で返す。
	List(ctx context.Context) ([]*model.Tag, error)

	// FindByID は指定IDのタグを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Tag, error)

	// FindBySlug はスラッグでタグを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Tag, error)

	// FindBySlugs は指定スラッグのタグを返す。存在しないスラッグは結果に含まれない。
	FindBySlugs(ctx context.Context, slugs []string) ([]*model.Tag, error)

	// Create はタグを作成する。
	Create(ctx context.Context, tag *model.Tag) error

	// CreateIfNotExists は同名のタグが存在しない場合のみ作成する。作成した場合はtrueを返す。
	CreateIfNotExists(ctx context.Context, tag *model.Tag) (bool, error)

	// Update はタグを更新する。
	Update(ctx context.Context, tag *model.Tag) error

	// DeleteByID は指定IDのタグを削除する。post_tagsはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// Pinger はストアの疎通確認インターフェース。ヘルスチェックで使用する。
type Pinger interface {
	PingContext(ctx context.Context) error
}
