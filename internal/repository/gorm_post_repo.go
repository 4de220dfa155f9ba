package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// GormPostRepo はGORMを使用した記事リポジトリ。
type GormPostRepo struct {
	db *gorm.DB
}

// NewGormPostRepo はGormPostRepoを生成する。
func NewGormPostRepo(db *gorm.DB) *GormPostRepo {
	return &GormPostRepo{db: db}
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *GormPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	return r.findOne(ctx, "find post by ID", "id = ?", id)
}

// FindBySlug はスラッグで記事を取得する。見つからない場合はnilを返す。
func (r *GormPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.findOne(ctx, "find post by slug", "slug = ?", slug)
}

func (r *GormPostRepo) findOne(ctx context.Context, op, cond string, arg any) (*model.Post, error) {
	var rec postRecord
	err := r.db.WithContext(ctx).Where(cond, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	post := rec.toModel()
	if err := attachGormTags(ctx, r.db, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// List は条件に一致する記事を published_at 降順（NULLは末尾）、id降順で返す。
func (r *GormPostRepo) List(ctx context.Context, filter model.PostListFilter) ([]*model.Post, error) {
	q := r.db.WithContext(ctx).Model(&postRecord{})

	switch {
	case !filter.IncludeDrafts:
		q = q.Where("published = ?", true)
	case filter.DraftsOwnerID != 0:
		q = q.Where("(published = ? OR author_id = ?)", true, filter.DraftsOwnerID)
	}

	if filter.Search != "" {
		// SQLiteのLIKEはASCIIの大文字小文字を区別しない
		pattern := containsPattern(filter.Search)
		q = q.Where(`(title LIKE ? ESCAPE '\' OR excerpt LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
	}

	if filter.TagSlug != "" {
		q = q.Where(`EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		             WHERE pt.post_id = posts.id AND t.slug = ?)`, filter.TagSlug)
	}

	if filter.Offset < 0 {
		return nil, fmt.Errorf("failed to list posts: %w", ErrNegativeOffset)
	}

	var recs []postRecord
	err := q.Order("published_at DESC NULLS LAST").Order("id DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]*model.Post, len(recs))
	for i := range recs {
		posts[i] = recs[i].toModel()
	}
	if err := attachGormTags(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

type postTagRow struct {
	PostID    int64
	ID        int64
	Name      string
	Slug      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// attachGormTags は記事のタグをまとめて読み込む。
func attachGormTags(ctx context.Context, db *gorm.DB, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]int64, len(posts))
	byID := make(map[int64]*model.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	var rows []postTagRow
	err := db.WithContext(ctx).Table("post_tags").
		Select("post_tags.post_id AS post_id, tags.id AS id, tags.name AS name, tags.slug AS slug, "+
			"tags.color AS color, tags.created_at AS created_at, tags.updated_at AS updated_at").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("post_tags.post_id IN ?", ids).
		Order("tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load post tags: %w", err)
	}

	for _, row := range rows {
		if p, ok := byID[row.PostID]; ok {
			p.Tags = append(p.Tags, model.Tag{
				ID:        row.ID,
				Name:      row.Name,
				Slug:      row.Slug,
				Color:     row.Color,
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			})
		}
	}
	return nil
}

// Create は記事とタグの紐付けを同一トランザクションで作成する。
func (r *GormPostRepo) Create(ctx context.Context, post *model.Post, tagIDs []int64) error {
	rec := newPostRecord(post)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return translateGormError("insert post", err)
		}
		return linkGormPostTags(tx, rec.ID, tagIDs)
	})
	if err != nil {
		return err
	}

	post.ID = rec.ID
	post.CreatedAt = rec.CreatedAt
	post.UpdatedAt = rec.UpdatedAt
	post.Tags = []model.Tag{}
	return attachGormTags(ctx, r.db, []*model.Post{post})
}

// Update は記事を更新する。tagIDsがnilの場合はタグの紐付けを変更しない。
func (r *GormPostRepo) Update(ctx context.Context, post *model.Post, tagIDs []int64) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&postRecord{}).
			Where("id = ?", post.ID).
			Updates(map[string]any{
				"title":        post.Title,
				"slug":         post.Slug,
				"excerpt":      post.Excerpt,
				"content":      post.Content,
				"cover_image":  post.CoverImage,
				"published":    post.Published,
				"published_at": utcPtr(post.PublishedAt),
				"updated_at":   now,
			})
		if result.Error != nil {
			return translateGormError("update post", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("post not found: %d", post.ID)
		}

		if tagIDs == nil {
			return nil
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&postTagRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear post tags: %w", err)
		}
		return linkGormPostTags(tx, post.ID, tagIDs)
	})
	if err != nil {
		return err
	}

	post.UpdatedAt = now
	post.Tags = []model.Tag{}
	return attachGormTags(ctx, r.db, []*model.Post{post})
}

func linkGormPostTags(tx *gorm.DB, postID int64, tagIDs []int64) error {
	seen := make(map[int64]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true
		if err := tx.Create(&postTagRecord{PostID: postID, TagID: tagID}).Error; err != nil {
			return translateGormError("link post tag", err)
		}
	}
	return nil
}

// DeleteByID は指定IDの記事を削除する。post_tagsはCASCADE削除される。
func (r *GormPostRepo) DeleteByID(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&postRecord{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*GormPostRepo)(nil)
