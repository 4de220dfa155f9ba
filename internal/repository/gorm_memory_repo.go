package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// GormMemoryRepo はGORMを使用した思い出リポジトリ。
type GormMemoryRepo struct {
	db *gorm.DB
}

// NewGormMemoryRepo はGormMemoryRepoを生成する。
func NewGormMemoryRepo(db *gorm.DB) *GormMemoryRepo {
	return &GormMemoryRepo{db: db}
}

// FindByID は指定IDの思い出を取得する。見つからない場合はnilを返す。
func (r *GormMemoryRepo) FindByID(ctx context.Context, id int64) (*model.Memory, error) {
	var rec memoryRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find memory: %w", err)
	}
	return rec.toModel(), nil
}

// List は思い出を date 降順、id降順で返す。
func (r *GormMemoryRepo) List(ctx context.Context, limit, offset int) ([]*model.Memory, error) {
	if offset < 0 {
		return nil, fmt.Errorf("failed to list memories: %w", ErrNegativeOffset)
	}
	var recs []memoryRecord
	err := r.db.WithContext(ctx).
		Order("date DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	memories := make([]*model.Memory, len(recs))
	for i := range recs {
		memories[i] = recs[i].toModel()
	}
	return memories, nil
}

// Create は思い出を作成する。
func (r *GormMemoryRepo) Create(ctx context.Context, m *model.Memory) error {
	rec := newMemoryRecord(m)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return translateGormError("insert memory", err)
	}
	m.ID = rec.ID
	m.CreatedAt = rec.CreatedAt
	m.UpdatedAt = rec.UpdatedAt
	return nil
}

// Update は思い出を更新する。
func (r *GormMemoryRepo) Update(ctx context.Context, m *model.Memory) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&memoryRecord{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"title":       m.Title,
			"description": m.Description,
			"date":        m.Date.UTC(),
			"image":       m.Image,
			"content":     m.Content,
			"updated_at":  now,
		})
	if result.Error != nil {
		return translateGormError("update memory", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("memory not found: %d", m.ID)
	}
	m.UpdatedAt = now
	return nil
}

// DeleteByID は指定IDの思い出を削除する。
func (r *GormMemoryRepo) DeleteByID(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&memoryRecord{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// compile-time interface check
var _ MemoryRepository = (*GormMemoryRepo)(nil)
