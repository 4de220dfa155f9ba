package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hitoshi/biscuitblog/internal/model"
)

// GormUserRepo はGORMを使用したユーザーリポジトリ。
type GormUserRepo struct {
	db *gorm.DB
}

// NewGormUserRepo はGormUserRepoを生成する。
func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *GormUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return rec.toModel(), nil
}

// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *GormUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return rec.toModel(), nil
}

// Create はユーザーを作成する。メールアドレスまたはgoogle_idが重複する場合はErrDuplicateを返す。
func (r *GormUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	rec := newUserRecord(user)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return translateGormError("insert user", err)
	}
	user.ID = rec.ID
	user.CreatedAt = rec.CreatedAt
	user.UpdatedAt = rec.UpdatedAt
	return nil
}

// SetGoogleIDIfUnset はgoogle_idが未設定の場合のみ設定する。
func (r *GormUserRepo) SetGoogleIDIfUnset(ctx context.Context, id int64, googleID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ? AND google_id IS NULL", id).
		Updates(map[string]any{"google_id": googleID, "updated_at": time.Now()})
	if result.Error != nil {
		return false, translateGormError("set google id", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateRole はユーザーのロールを更新する。
func (r *GormUserRepo) UpdateRole(ctx context.Context, id int64, role model.Role) error {
	err := r.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": string(role), "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。関連データは外部キーでCASCADE削除される。
func (r *GormUserRepo) DeleteByID(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&userRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found: %d", id)
	}
	return nil
}

// PingContext はデータベースへの疎通を確認する。
func (r *GormUserRepo) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// compile-time interface check
var _ UserRepository = (*GormUserRepo)(nil)
var _ Pinger = (*GormUserRepo)(nil)
