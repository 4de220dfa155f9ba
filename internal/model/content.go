package model

import (
	"math"
	"time"
)

// Post はブログ記事を表す。
// PublishedAtは作成時にPublished=trueの場合のみ設定され、公開フラグの変更では自動更新されない。
type Post struct {
	ID          int64
	Title       string
	Slug        string
	Excerpt     string
	Content     string
	CoverImage  string
	Published   bool
	PublishedAt *time.Time
	AuthorID    int64
	Tags        []Tag
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Memory は日付に紐づく思い出の記録を表す。
type Memory struct {
	ID          int64
	Title       string
	Description string
	Date        time.Time
	Image       string
	Content     string
	AuthorID    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tag は記事の分類タグを表す。
type Tag struct {
	ID        int64
	Name      string
	Slug      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultTagColor はタグ作成時に色が未指定の場合の既定値。
const DefaultTagColor = "#3B82F6"

// PostListFilter は記事一覧の検索条件。
type PostListFilter struct {
	Search  string // タイトル・抜粋・本文の部分一致（大文字小文字を区別しない）
	TagSlug string

	// IncludeDrafts がtrueの場合、公開済みに加えて下書きも含める。
	// DraftsOwnerIDが0以外ならその著者の下書きのみを含める。
	IncludeDrafts bool
	DraftsOwnerID int64

	Limit  int
	Offset int
}

// Page はページ番号と1ページあたりの件数を表す。
type Page struct {
	Number int
	Size   int
}

// InRange はオフセットがintに収まるかを返す。Sizeは正であること。
func (p Page) InRange() bool {
	return p.Number >= 1 && p.Number-1 <= math.MaxInt/p.Size
}

// Offset はページに対応するオフセットを返す。
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
