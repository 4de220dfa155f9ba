// Package memory は日付に紐づく思い出のドメインロジックを提供する。
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
)

// ページングの既定値
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// DateLayout は日付のみの入力形式。
const DateLayout = "2006-01-02"

// Renderer は本文MarkdownをHTMLに変換するインターフェース。
type Renderer interface {
	Render(source string) (string, error)
}

// Detail は思い出と本文HTMLを結合したドメインオブジェクト。
type Detail struct {
	*model.Memory
	ContentHTML string
}

// CreateInput は思い出作成の入力。DateはYYYY-MM-DDまたはRFC 3339。
type CreateInput struct {
	Title       string
	Description string
	Date        string
	Image       string
	Content     string
}

// UpdateInput は思い出更新の入力。nilの項目は変更しない。
type UpdateInput struct {
	Title       *string
	Description *string
	Date        *string
	Image       *string
	Content     *string
}

// Service は思い出のサービス層。
type Service struct {
	memories repository.MemoryRepository
	renderer Renderer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(memories repository.MemoryRepository, renderer Renderer) *Service {
	return &Service{memories: memories, renderer: renderer}
}

// ParseDate はYYYY-MM-DDまたはRFC 3339の文字列を日付（UTCの0時）に変換する。
// RFC 3339の場合は入力のタイムゾーンでの日付を採用する。
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, model.NewValidationError("date is required")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, model.NewValidationError("date must be YYYY-MM-DD or RFC 3339")
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// List は思い出を日付の新しい順に返す。
func (s *Service) List(ctx context.Context, pageNumber, limit int) ([]*Detail, error) {
	if pageNumber < 0 || limit < 0 {
		return nil, model.NewValidationError("page and limit must be positive")
	}
	if pageNumber == 0 {
		pageNumber = 1
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page := model.Page{Number: pageNumber, Size: limit}
	if !page.InRange() {
		return nil, model.NewValidationError("page is out of range")
	}

	memories, err := s.memories.List(ctx, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("思い出一覧の取得に失敗しました: %w", err)
	}

	details := make([]*Detail, 0, len(memories))
	for _, m := range memories {
		d, err := s.detail(m)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// Get は思い出を取得する。
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	m, err := s.memories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("思い出の取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewNotFoundError("Memory")
	}
	return s.detail(m)
}

// Create は思い出を作成する。
func (s *Service) Create(ctx context.Context, author *model.User, in CreateInput) (*Detail, error) {
	if author == nil {
		return nil, model.NewUnauthorizedError()
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	m := &model.Memory{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Date:        date,
		Image:       strings.TrimSpace(in.Image),
		Content:     in.Content,
		AuthorID:    author.ID,
	}
	if m.Title == "" {
		return nil, model.NewValidationError("title is required")
	}

	if err := s.memories.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("思い出の作成に失敗しました: %w", err)
	}

	slog.Info("memory created", slog.Int64("memory_id", m.ID), slog.Int64("author_id", author.ID))
	return s.detail(m)
}

// Update は思い出を更新する。所有者または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, actor *model.User, id int64, in UpdateInput) (*Detail, error) {
	m, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
		if m.Title == "" {
			return nil, model.NewValidationError("title is required")
		}
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.Date != nil {
		date, err := ParseDate(*in.Date)
		if err != nil {
			return nil, err
		}
		m.Date = date
	}
	if in.Image != nil {
		m.Image = strings.TrimSpace(*in.Image)
	}
	if in.Content != nil {
		m.Content = *in.Content
	}

	if err := s.memories.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("思い出の更新に失敗しました: %w", err)
	}
	return s.detail(m)
}

// Delete は思い出を削除する。所有者または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, actor *model.User, id int64) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.memories.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("思い出の削除に失敗しました: %w", err)
	}
	slog.Info("memory deleted", slog.Int64("memory_id", id), slog.Int64("actor_id", actor.ID))
	return nil
}

func (s *Service) authorize(ctx context.Context, actor *model.User, id int64) (*model.Memory, error) {
	if actor == nil {
		return nil, model.NewUnauthorizedError()
	}
	m, err := s.memories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("思い出の取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewNotFoundError("Memory")
	}
	if !actor.CanModify(m.AuthorID) {
		return nil, model.NewForbiddenError()
	}
	return m, nil
}

func (s *Service) detail(m *model.Memory) (*Detail, error) {
	html, err := s.renderer.Render(m.Content)
	if err != nil {
		return nil, fmt.Errorf("本文の変換に失敗しました: %w", err)
	}
	return &Detail{Memory: m, ContentHTML: html}, nil
}
