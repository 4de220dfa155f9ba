// Package post はブログ記事のドメインロジックを提供する。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
	"github.com/hitoshi/biscuitblog/internal/slug"
)

// ページングの既定値
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Renderer は本文MarkdownをHTMLに変換するインターフェース。
type Renderer interface {
	Render(source string) (string, error)
}

// Detail は記事と表示用に変換した本文HTMLを結合したドメインオブジェクト。
type Detail struct {
	*model.Post
	ContentHTML string
}

// CreateInput は記事作成の入力。
type CreateInput struct {
	Title      string
	Slug       string // 空の場合はタイトルから生成する
	Excerpt    string
	Content    string
	CoverImage string
	Published  bool
	Tags       []string // タグのスラッグ
}

// UpdateInput は記事更新の入力。nilの項目は変更しない。
type UpdateInput struct {
	Title      *string
	Slug       *string
	Excerpt    *string
	Content    *string
	CoverImage *string
	Published  *bool

	// SetPublishedAt がtrueの場合のみPublishedAtで上書きする（nilで未公開日時に戻す）。
	SetPublishedAt bool
	PublishedAt    *time.Time

	// Tags がnilの場合はタグを変更しない。空スライスの場合は全て外す。
	Tags *[]string
}

// ListQuery は記事一覧の検索条件。
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	Tag    string
	Drafts bool // 下書きを含める（要認証）
}

// Service は記事のサービス層。
// 認可（所有者または管理者のみ更新可）と入力検証を担い、永続化はリポジトリに委譲する。
type Service struct {
	posts    repository.PostRepository
	tags     repository.TagRepository
	renderer Renderer
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(posts repository.PostRepository, tags repository.TagRepository, renderer Renderer) *Service {
	return &Service{
		posts:    posts,
		tags:     tags,
		renderer: renderer,
		now:      time.Now,
	}
}

// List は記事一覧を返す。未認証の閲覧者には公開済み記事のみを返す。
// Draftsを指定した場合、管理者は全ての下書きを、それ以外は自分の下書きのみを含める。
func (s *Service) List(ctx context.Context, viewer *model.User, q ListQuery) ([]*Detail, error) {
	page, err := normalizePage(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}

	filter := model.PostListFilter{
		Search:  strings.TrimSpace(q.Search),
		TagSlug: strings.TrimSpace(q.Tag),
		Limit:   page.Size,
		Offset:  page.Offset(),
	}
	if q.Drafts {
		if viewer == nil {
			return nil, model.NewUnauthorizedError()
		}
		filter.IncludeDrafts = true
		if !viewer.IsAdmin() {
			filter.DraftsOwnerID = viewer.ID
		}
	}

	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}

	details := make([]*Detail, 0, len(posts))
	for _, p := range posts {
		d, err := s.detail(p)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// GetBySlug はスラッグで記事を取得する。
// 下書きは所有者と管理者以外には存在しないものとして扱う。
func (s *Service) GetBySlug(ctx context.Context, viewer *model.User, postSlug string) (*Detail, error) {
	p, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if !visible(p, viewer) {
		return nil, model.NewNotFoundError("Post")
	}
	return s.detail(p)
}

// GetByID はIDで記事を取得する。可視性はGetBySlugと同じ。
func (s *Service) GetByID(ctx context.Context, viewer *model.User, id int64) (*Detail, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if !visible(p, viewer) {
		return nil, model.NewNotFoundError("Post")
	}
	return s.detail(p)
}

// Create は記事を作成する。公開状態で作成した場合のみPublishedAtを現在時刻に設定する。
func (s *Service) Create(ctx context.Context, author *model.User, in CreateInput) (*Detail, error) {
	if author == nil {
		return nil, model.NewUnauthorizedError()
	}

	p := &model.Post{
		Title:      strings.TrimSpace(in.Title),
		Slug:       strings.TrimSpace(in.Slug),
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		CoverImage: strings.TrimSpace(in.CoverImage),
		Published:  in.Published,
		AuthorID:   author.ID,
	}
	if p.Slug == "" {
		p.Slug = slug.Make(p.Title)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if p.Published {
		now := s.now().UTC()
		p.PublishedAt = &now
	}

	tagIDs, err := s.resolveTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, p, tagIDs); err != nil {
		return nil, mapWriteError(err, "記事の作成に失敗しました")
	}

	slog.Info("post created",
		slog.Int64("post_id", p.ID),
		slog.Int64("author_id", author.ID),
		slog.Bool("published", p.Published),
	)

	created, err := s.posts.FindByID(ctx, p.ID)
	if err != nil || created == nil {
		return s.detail(p)
	}
	return s.detail(created)
}

// Update は記事を更新する。所有者または管理者のみ実行できる。
// Publishedの変更ではPublishedAtは変わらない。
func (s *Service) Update(ctx context.Context, actor *model.User, id int64, in UpdateInput) (*Detail, error) {
	p, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		p.Slug = strings.TrimSpace(*in.Slug)
	}
	if in.Excerpt != nil {
		p.Excerpt = *in.Excerpt
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.CoverImage != nil {
		p.CoverImage = strings.TrimSpace(*in.CoverImage)
	}
	if in.Published != nil {
		p.Published = *in.Published
	}
	if in.SetPublishedAt {
		if in.PublishedAt != nil {
			t := in.PublishedAt.UTC()
			p.PublishedAt = &t
		} else {
			p.PublishedAt = nil
		}
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	var tagIDs []int64
	if in.Tags != nil {
		tagIDs, err = s.resolveTags(ctx, *in.Tags)
		if err != nil {
			return nil, err
		}
		if tagIDs == nil {
			tagIDs = []int64{}
		}
	}

	if err := s.posts.Update(ctx, p, tagIDs); err != nil {
		return nil, mapWriteError(err, "記事の更新に失敗しました")
	}

	updated, err := s.posts.FindByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewNotFoundError("Post")
	}
	return s.detail(updated)
}

// Delete は記事を削除する。所有者または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, actor *model.User, id int64) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.posts.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	slog.Info("post deleted", slog.Int64("post_id", id), slog.Int64("actor_id", actor.ID))
	return nil
}

// authorize は記事を取得し、actorが変更できるかを確認する。
// 未認証は401、記事が存在しない場合は404、権限がない場合は403を返す。
func (s *Service) authorize(ctx context.Context, actor *model.User, id int64) (*model.Post, error) {
	if actor == nil {
		return nil, model.NewUnauthorizedError()
	}
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewNotFoundError("Post")
	}
	if !actor.CanModify(p.AuthorID) {
		return nil, model.NewForbiddenError()
	}
	return p, nil
}

// resolveTags はタグのスラッグをIDに変換する。存在しないスラッグは入力エラーとする。
func (s *Service) resolveTags(ctx context.Context, slugs []string) ([]int64, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(slugs))
	unique := make([]string, 0, len(slugs))
	for _, raw := range slugs {
		sl := strings.ToLower(strings.TrimSpace(raw))
		if sl == "" || seen[sl] {
			continue
		}
		seen[sl] = true
		unique = append(unique, sl)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	found, err := s.tags.FindBySlugs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}

	ids := make([]int64, 0, len(found))
	for _, t := range found {
		delete(seen, t.Slug)
		ids = append(ids, t.ID)
	}
	if len(seen) > 0 {
		missing := make([]string, 0, len(seen))
		for sl := range seen {
			missing = append(missing, sl)
		}
		sort.Strings(missing)
		return nil, model.NewValidationError("unknown tags: " + strings.Join(missing, ", "))
	}
	return ids, nil
}

func (s *Service) detail(p *model.Post) (*Detail, error) {
	html, err := s.renderer.Render(p.Content)
	if err != nil {
		return nil, fmt.Errorf("本文の変換に失敗しました: %w", err)
	}
	return &Detail{Post: p, ContentHTML: html}, nil
}

func visible(p *model.Post, viewer *model.User) bool {
	if p == nil {
		return false
	}
	return p.Published || viewer.CanModify(p.AuthorID)
}

func validate(p *model.Post) error {
	if p.Title == "" {
		return model.NewValidationError("title is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return model.NewValidationError("content is required")
	}
	if p.Slug == "" {
		return model.NewValidationError("slug cannot be derived from title; specify a slug")
	}
	if !slug.Valid(p.Slug) {
		return model.NewValidationError("slug must contain only lowercase letters, digits and single hyphens")
	}
	return nil
}

func normalizePage(number, size int) (model.Page, error) {
	if number < 0 || size < 0 {
		return model.Page{}, model.NewValidationError("page and limit must be positive")
	}
	if number == 0 {
		number = 1
	}
	if size == 0 {
		size = DefaultLimit
	}
	if size > MaxLimit {
		size = MaxLimit
	}
	page := model.Page{Number: number, Size: size}
	if !page.InRange() {
		return model.Page{}, model.NewValidationError("page is out of range")
	}
	return page, nil
}

func mapWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return model.NewConflictError("Post slug")
	case errors.Is(err, repository.ErrForeignKey):
		// 著者またはタグが書き込み中に削除された
		return model.NewValidationError("referenced author or tag no longer exists")
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
