package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// GORMで永続化するレコード定義。テーブル構成はPostgreSQLのマイグレーションと揃える。

type userRecord struct {
	ID        int64   `gorm:"primaryKey"`
	Email     string  `gorm:"size:320;not null;uniqueIndex"`
	Name      string  `gorm:"size:255;not null"`
	Avatar    string  `gorm:"type:text"`
	GoogleID  *string `gorm:"size:255;uniqueIndex"`
	Role      string  `gorm:"size:16;not null;default:user"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRecord) TableName() string { return "users" }

type sessionRecord struct {
	ID        string      `gorm:"primaryKey;size:128"`
	UserID    int64       `gorm:"not null;index"`
	User      *userRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time   `gorm:"not null;index"`
	CreatedAt time.Time
}

func (sessionRecord) TableName() string { return "sessions" }

type tagRecord struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;uniqueIndex"`
	Slug      string `gorm:"size:100;not null;uniqueIndex"`
	Color     string `gorm:"size:7;not null;default:#3B82F6"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (tagRecord) TableName() string { return "tags" }

type postRecord struct {
	ID          int64       `gorm:"primaryKey"`
	Title       string      `gorm:"size:255;not null"`
	Slug        string      `gorm:"size:255;not null;uniqueIndex"`
	Excerpt     string      `gorm:"type:text"`
	Content     string      `gorm:"type:text;not null"`
	CoverImage  string      `gorm:"type:text"`
	Published   bool        `gorm:"not null;default:false;index:idx_posts_published,priority:1"`
	PublishedAt *time.Time  `gorm:"index:idx_posts_published,priority:2"`
	AuthorID    int64       `gorm:"not null;index"`
	Author      *userRecord `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (postRecord) TableName() string { return "posts" }

type postTagRecord struct {
	PostID int64       `gorm:"primaryKey;autoIncrement:false"`
	TagID  int64       `gorm:"primaryKey;autoIncrement:false;index"`
	Post   *postRecord `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Tag    *tagRecord  `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}

func (postTagRecord) TableName() string { return "post_tags" }

type memoryRecord struct {
	ID          int64       `gorm:"primaryKey"`
	Title       string      `gorm:"size:255;not null"`
	Description string      `gorm:"type:text"`
	Date        time.Time   `gorm:"not null;index"`
	Image       string      `gorm:"type:text"`
	Content     string      `gorm:"type:text"`
	AuthorID    int64       `gorm:"not null;index"`
	Author      *userRecord `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (memoryRecord) TableName() string { return "memories" }

// AutoMigrate はGORMストアのテーブルを作成・更新する。
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userRecord{},
		&sessionRecord{},
		&tagRecord{},
		&postRecord{},
		&postTagRecord{},
		&memoryRecord{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// translateGormError は制約違反をセンチネルエラーに変換し、それ以外はラップして返す。
// gorm.ConfigのTranslateErrorが有効であることを前提とする。
func translateGormError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("failed to %s: %w", op, ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("failed to %s: %w", op, ErrForeignKey)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// --- レコードとドメインモデルの変換 ---

func newUserRecord(u *model.User) *userRecord {
	rec := &userRecord{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.AvatarURL,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.GoogleID != "" {
		id := u.GoogleID
		rec.GoogleID = &id
	}
	return rec
}

func (r *userRecord) toModel() *model.User {
	u := &model.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		AvatarURL: r.Avatar,
		Role:      model.Role(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.GoogleID != nil {
		u.GoogleID = *r.GoogleID
	}
	return u
}

func (r *tagRecord) toModel() *model.Tag {
	return &model.Tag{
		ID:        r.ID,
		Name:      r.Name,
		Slug:      r.Slug,
		Color:     r.Color,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newPostRecord(p *model.Post) *postRecord {
	return &postRecord{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Excerpt:     p.Excerpt,
		Content:     p.Content,
		CoverImage:  p.CoverImage,
		Published:   p.Published,
		PublishedAt: utcPtr(p.PublishedAt),
		AuthorID:    p.AuthorID,
	}
}

func (r *postRecord) toModel() *model.Post {
	return &model.Post{
		ID:          r.ID,
		Title:       r.Title,
		Slug:        r.Slug,
		Excerpt:     r.Excerpt,
		Content:     r.Content,
		CoverImage:  r.CoverImage,
		Published:   r.Published,
		PublishedAt: r.PublishedAt,
		AuthorID:    r.AuthorID,
		Tags:        []model.Tag{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func newMemoryRecord(m *model.Memory) *memoryRecord {
	return &memoryRecord{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Date:        m.Date.UTC(),
		Image:       m.Image,
		Content:     m.Content,
		AuthorID:    m.AuthorID,
	}
}

func (r *memoryRecord) toModel() *model.Memory {
	return &model.Memory{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Image:       r.Image,
		Content:     r.Content,
		AuthorID:    r.AuthorID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// SQLiteは時刻を文字列で比較するため、保存・比較はUTCに揃える。
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
