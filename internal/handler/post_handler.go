package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/post"
	"github.com/hitoshi/biscuitblog/internal/schema"
)

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context, viewer *model.User, q post.ListQuery) ([]*post.Detail, error)
	GetBySlug(ctx context.Context, viewer *model.User, slug string) (*post.Detail, error)
	Create(ctx context.Context, author *model.User, in post.CreateInput) (*post.Detail, error)
	Update(ctx context.Context, actor *model.User, id int64, in post.UpdateInput) (*post.Detail, error)
	Delete(ctx context.Context, actor *model.User, id int64) error
}

// PostHandler は記事のHTTPハンドラー。
type PostHandler struct {
	responder
	service   PostServiceInterface
	validator *schema.Validator
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, validator *schema.Validator, exposeDetail bool) *PostHandler {
	return &PostHandler{
		responder: responder{exposeDetail: exposeDetail},
		service:   service,
		validator: validator,
	}
}

type createPostRequest struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	CoverImage string   `json:"coverImage"`
	Published  bool     `json:"published"`
	Tags       []string `json:"tags"`
}

type updatePostRequest struct {
	Title       *string    `json:"title"`
	Slug        *string    `json:"slug"`
	Excerpt     *string    `json:"excerpt"`
	Content     *string    `json:"content"`
	CoverImage  *string    `json:"coverImage"`
	Published   *bool      `json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	Tags        *[]string  `json:"tags"`
}

// ListPosts は記事一覧を返す。
// GET /api/posts?page=1&limit=10&search=xxx&tag=go&drafts=true
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	q := r.URL.Query()
	posts, err := h.service.List(r.Context(), middleware.UserFromContext(r.Context()), post.ListQuery{
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
		Tag:    q.Get("tag"),
		Drafts: queryBool(r, "drafts"),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostResponses(posts)})
}

// GetPost はスラッグで記事を返す。
// GET /api/posts/{ref}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetBySlug(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": toPostResponse(p)})
}

// CreatePost は記事を作成する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if _, err := decodeBody(w, r, h.validator, schema.PostCreate, &req); err != nil {
		h.handleServiceError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), middleware.UserFromContext(r.Context()), post.CreateInput{
		Title:      req.Title,
		Slug:       req.Slug,
		Excerpt:    req.Excerpt,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		Published:  req.Published,
		Tags:       req.Tags,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"post": toPostResponse(p)})
}

// UpdatePost は記事を更新する。所有者または管理者のみ。
// PUT /api/posts/{ref}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "ref")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req updatePostRequest
	body, err := decodeBody(w, r, h.validator, schema.PostUpdate, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	p, err := h.service.Update(r.Context(), middleware.UserFromContext(r.Context()), id, post.UpdateInput{
		Title:          req.Title,
		Slug:           req.Slug,
		Excerpt:        req.Excerpt,
		Content:        req.Content,
		CoverImage:     req.CoverImage,
		Published:      req.Published,
		SetPublishedAt: hasField(body, "publishedAt"),
		PublishedAt:    req.PublishedAt,
		Tags:           req.Tags,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": toPostResponse(p)})
}

// DeletePost は記事を削除する。所有者または管理者のみ。
// DELETE /api/posts/{ref}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "ref")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
