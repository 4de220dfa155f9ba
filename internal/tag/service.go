// Package tag は記事タグのドメインロジックを提供する。
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
	"github.com/hitoshi/biscuitblog/internal/slug"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CreateInput はタグ作成の入力。
type CreateInput struct {
	Name  string
	Slug  string // 空の場合は名前から生成する
	Color string // 空の場合はmodel.DefaultTagColor
}

// UpdateInput はタグ更新の入力。nilの項目は変更しない。
type UpdateInput struct {
	Name  *string
	Slug  *string
	Color *string
}

// Service はタグのサービス層。
// タグは所有者を持たないため、作成は認証済みユーザー、更新・削除は管理者のみ許可する。
type Service struct {
	tags repository.TagRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(tags repository.TagRepository) *Service {
	return &Service{tags: tags}
}

// List は全タグを名前順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	return tags, nil
}

// GetBySlug はスラッグでタグを取得する。
func (s *Service) GetBySlug(ctx context.Context, tagSlug string) (*model.Tag, error) {
	t, err := s.tags.FindBySlug(ctx, tagSlug)
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewNotFoundError("Tag")
	}
	return t, nil
}

// Create はタグを作成する。
func (s *Service) Create(ctx context.Context, actor *model.User, in CreateInput) (*model.Tag, error) {
	if actor == nil {
		return nil, model.NewUnauthorizedError()
	}

	t := &model.Tag{
		Name:  strings.TrimSpace(in.Name),
		Slug:  strings.TrimSpace(in.Slug),
		Color: strings.TrimSpace(in.Color),
	}
	if t.Slug == "" {
		t.Slug = slug.Make(t.Name)
	}
	if t.Color == "" {
		t.Color = model.DefaultTagColor
	}
	if err := validate(t); err != nil {
		return nil, err
	}

	if err := s.tags.Create(ctx, t); err != nil {
		return nil, mapWriteError(err, "タグの作成に失敗しました")
	}

	slog.Info("tag created", slog.Int64("tag_id", t.ID), slog.String("slug", t.Slug))
	return t, nil
}

// Update はタグを更新する。管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, actor *model.User, id int64, in UpdateInput) (*model.Tag, error) {
	t, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		t.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.Color != nil {
		t.Color = strings.TrimSpace(*in.Color)
	}
	if err := validate(t); err != nil {
		return nil, err
	}

	if err := s.tags.Update(ctx, t); err != nil {
		return nil, mapWriteError(err, "タグの更新に失敗しました")
	}
	return t, nil
}

// Delete はタグを削除する。管理者のみ実行できる。記事との紐付けも削除される。
func (s *Service) Delete(ctx context.Context, actor *model.User, id int64) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.tags.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("タグの削除に失敗しました: %w", err)
	}
	slog.Info("tag deleted", slog.Int64("tag_id", id), slog.Int64("actor_id", actor.ID))
	return nil
}

func (s *Service) authorize(ctx context.Context, actor *model.User, id int64) (*model.Tag, error) {
	if actor == nil {
		return nil, model.NewUnauthorizedError()
	}
	t, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewNotFoundError("Tag")
	}
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	return t, nil
}

func validate(t *model.Tag) error {
	if t.Name == "" {
		return model.NewValidationError("name is required")
	}
	if t.Slug == "" {
		return model.NewValidationError("slug cannot be derived from name; specify a slug")
	}
	if !slug.Valid(t.Slug) {
		return model.NewValidationError("slug must contain only lowercase letters, digits and single hyphens")
	}
	if !colorPattern.MatchString(t.Color) {
		return model.NewValidationError("color must be a hex color like #3B82F6")
	}
	return nil
}

func mapWriteError(err error, msg string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return model.NewConflictError("Tag name or slug")
	}
	return fmt.Errorf("%s: %w", msg, err)
}
