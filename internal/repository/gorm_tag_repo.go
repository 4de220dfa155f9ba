package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// GormTagRepo はGORMを使用したタグリポジトリ。
type GormTagRepo struct {
	db *gorm.DB
}

// NewGormTagRepo はGormTagRepoを生成する。
func NewGormTagRepo(db *gorm.DB) *GormTagRepo {
	return &GormTagRepo{db: db}
}

func tagsToModel(recs []tagRecord) []*model.Tag {
	tags := make([]*model.Tag, len(recs))
	for i := range recs {
		tags[i] = recs[i].toModel()
	}
	return tags
}

// List は全タグを名前順で返す。
func (r *GormTagRepo) List(ctx context.Context) ([]*model.Tag, error) {
	var recs []tagRecord
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tagsToModel(recs), nil
}

// FindByID は指定IDのタグを取得する。見つからない場合はnilを返す。
func (r *GormTagRepo) FindByID(ctx context.Context, id int64) (*model.Tag, error) {
	return r.findOne(ctx, "find tag by ID", "id = ?", id)
}

// FindBySlug はスラッグでタグを取得する。見つからない場合はnilを返す。
func (r *GormTagRepo) FindBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	return r.findOne(ctx, "find tag by slug", "slug = ?", slug)
}

func (r *GormTagRepo) findOne(ctx context.Context, op, cond string, arg any) (*model.Tag, error) {
	var rec tagRecord
	err := r.db.WithContext(ctx).Where(cond, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return rec.toModel(), nil
}

// FindBySlugs は指定スラッグのタグを返す。
func (r *GormTagRepo) FindBySlugs(ctx context.Context, slugs []string) ([]*model.Tag, error) {
	if len(slugs) == 0 {
		return []*model.Tag{}, nil
	}
	var recs []tagRecord
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("name ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to find tags by slugs: %w", err)
	}
	return tagsToModel(recs), nil
}

// Create はタグを作成する。名前またはスラッグが重複する場合はErrDuplicateを返す。
func (r *GormTagRepo) Create(ctx context.Context, tag *model.Tag) error {
	rec := &tagRecord{Name: tag.Name, Slug: tag.Slug, Color: tag.Color}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return translateGormError("insert tag", err)
	}
	tag.ID = rec.ID
	tag.CreatedAt = rec.CreatedAt
	tag.UpdatedAt = rec.UpdatedAt
	return nil
}

// CreateIfNotExists は同名・同スラッグのタグが存在しない場合のみ作成する。
func (r *GormTagRepo) CreateIfNotExists(ctx context.Context, tag *model.Tag) (bool, error) {
	err := r.Create(ctx, tag)
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update はタグを更新する。
func (r *GormTagRepo) Update(ctx context.Context, tag *model.Tag) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&tagRecord{}).
		Where("id = ?", tag.ID).
		Updates(map[string]any{
			"name":       tag.Name,
			"slug":       tag.Slug,
			"color":      tag.Color,
			"updated_at": now,
		})
	if result.Error != nil {
		return translateGormError("update tag", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("tag not found: %d", tag.ID)
	}
	tag.UpdatedAt = now
	return nil
}

// DeleteByID は指定IDのタグを削除する。post_tagsはCASCADE削除される。
func (r *GormTagRepo) DeleteByID(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&tagRecord{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TagRepository = (*GormTagRepo)(nil)
