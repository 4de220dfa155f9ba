package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/biscuitblog/internal/memory"
	"github.com/hitoshi/biscuitblog/internal/middleware"
	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/schema"
)

// MemoryServiceInterface は思い出ハンドラーが必要とするサービスインターフェース。
type MemoryServiceInterface interface {
	List(ctx context.Context, page, limit int) ([]*memory.Detail, error)
	Get(ctx context.Context, id int64) (*memory.Detail, error)
	Create(ctx context.Context, author *model.User, in memory.CreateInput) (*memory.Detail, error)
	Update(ctx context.Context, actor *model.User, id int64, in memory.UpdateInput) (*memory.Detail, error)
	Delete(ctx context.Context, actor *model.User, id int64) error
}

// MemoryHandler は思い出のHTTPハンドラー。
type MemoryHandler struct {
	responder
	service   MemoryServiceInterface
	validator *schema.Validator
}

// NewMemoryHandler はMemoryHandlerを生成する。
func NewMemoryHandler(service MemoryServiceInterface, validator *schema.Validator, exposeDetail bool) *MemoryHandler {
	return &MemoryHandler{
		responder: responder{exposeDetail: exposeDetail},
		service:   service,
		validator: validator,
	}
}

type createMemoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Image       string `json:"image"`
	Content     string `json:"content"`
}

type updateMemoryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Image       *string `json:"image"`
	Content     *string `json:"content"`
}

// ListMemories は思い出を日付の新しい順に返す。
// GET /api/memories?page=1&limit=50
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
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

	memories, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"memories": toMemoryResponses(memories)})
}

// GetMemory は思い出を返す。
// GET /api/memories/{id}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"memory": toMemoryResponse(m)})
}

// CreateMemory は思い出を作成する。
// POST /api/memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if _, err := decodeBody(w, r, h.validator, schema.MemoryCreate, &req); err != nil {
		h.handleServiceError(w, err)
		return
	}

	m, err := h.service.Create(r.Context(), middleware.UserFromContext(r.Context()), memory.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Image:       req.Image,
		Content:     req.Content,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"memory": toMemoryResponse(m)})
}

// UpdateMemory は思い出を更新する。所有者または管理者のみ。
// PUT /api/memories/{id}
func (h *MemoryHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req updateMemoryRequest
	if _, err := decodeBody(w, r, h.validator, schema.MemoryUpdate, &req); err != nil {
		h.handleServiceError(w, err)
		return
	}

	m, err := h.service.Update(r.Context(), middleware.UserFromContext(r.Context()), id, memory.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Image:       req.Image,
		Content:     req.Content,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"memory": toMemoryResponse(m)})
}

// DeleteMemory は思い出を削除する。所有者または管理者のみ。
// DELETE /api/memories/{id}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
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
