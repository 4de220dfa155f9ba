package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/schema"
	"github.com/hitoshi/biscuitblog/internal/tag"
)

// TagServiceInterface はタグハンドラーが必要とするサービスインターフェース。
type TagServiceInterface interface {
	List(ctx context.Context) ([]*model.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*model.Tag, error)
	Create(ctx context.Context, actor *model.User, in tag.CreateInput) (*model.Tag, error)
	Update(ctx context.Context, actor *model.User, id int64, in tag.UpdateInput) (*model.Tag, error)
	Delete(ctx context.Context, actor *model.User, id int64) error
}

// TagHandler はタグのHTTPハンドラー。
type TagHandler struct {
	responder
	service   TagServiceInterface
	validator *schema.Validator
}

// NewTagHandler はTagHandlerを生成する。
func NewTagHandler(service TagServiceInterface, validator *schema.Validator, exposeDetail bool) *TagHandler {
	return &TagHandler{
		responder: responder{exposeDetail: exposeDetail},
		service:   service,
		validator: validator,
	}
}

type createTagRequest struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

type updateTagRequest struct {
	Name  *string `json:"name"`
	Slug  *string `json:"slug"`
	Color *string `json:"color"`
}

// ListTags は全タグを返す。
// GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": toTagResponses(tags)})
}

// GetTag はスラッグでタグを返す。
// GET /api/tags/{ref}
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": toTagResponse(t)})
}

// CreateTag はタグを作成する。
// POST /api/tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if _, err := decodeBody(w, r, h.validator, schema.TagCreate, &req); err != nil {
		h.handleServiceError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), middleware.UserFromContext(r.Context()), tag.CreateInput{
		Name:  req.Name,
		Slug:  req.Slug,
		Color: req.Color,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tag": toTagResponse(t)})
}

// UpdateTag はタグを更新する。管理者のみ。
// PUT /api/tags/{ref}
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "ref")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req updateTagRequest
	if _, err := decodeBody(w, r, h.validator, schema.TagUpdate, &req); err != nil {
		h.handleServiceError(w, err)
		return
	}

	t, err := h.service.Update(r.Context(), middleware.UserFromContext(r.Context()), id, tag.UpdateInput{
		Name:  req.Name,
		Slug:  req.Slug,
		Color: req.Color,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": toTagResponse(t)})
}

// DeleteTag はタグを削除する。管理者のみ。
// DELETE /api/tags/{ref}
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
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
