package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/storage"
)

// multipartOverhead はファイル本体以外のマルチパートヘッダー等に許容するバイト数。
const multipartOverhead = 64 << 10

// uploadCacheControl は公開画像のキャッシュ指定。ファイル名は一意で内容は変わらない。
const uploadCacheControl = "public, max-age=31536000, immutable"

// UploaderInterface はアップロードハンドラーが必要とする画像パイプライン。
type UploaderInterface interface {
	AcceptImage(ctx context.Context, data []byte, filename string) (string, error)
	MaxBytes() int64
}

// ObjectOpener は公開ファイルを読み出すインターフェース。
type ObjectOpener interface {
	Open(ctx context.Context, name string) (*storage.Object, error)
}

// UploadHandler は画像アップロードと公開ファイル配信のHTTPハンドラー。
type UploadHandler struct {
	responder
	uploader UploaderInterface
	objects  ObjectOpener
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(uploader UploaderInterface, objects ObjectOpener, exposeDetail bool) *UploadHandler {
	return &UploadHandler{
		responder: responder{exposeDetail: exposeDetail},
		uploader:  uploader,
		objects:   objects,
	}
}

// UploadImage はマルチパートのimageフィールドを受け取り、変換後の公開URLを返す。
// POST /api/uploads/image
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	limit := h.uploader.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleServiceError(w, model.NewUnsupportedMediaError("file is too large"))
			return
		}
		h.handleServiceError(w, model.NewValidationError("expected a multipart form with an image field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		h.handleServiceError(w, model.NewValidationError("no file uploaded"))
		return
	}
	defer file.Close()

	// 上限+1バイトまで読み、サイズ超過の判定はパイプラインに任せる
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.handleServiceError(w, model.NewValidationError("failed to read uploaded file"))
		return
	}

	url, err := h.uploader.AcceptImage(r.Context(), data, header.Filename)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}

// ServeUpload は公開済みの画像を返す。
// GET /uploads/{name}
func (h *UploadHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	obj, err := h.objects.Open(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("File"))
		return
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	defer obj.Body.Close()

	header := w.Header()
	if obj.ContentType != "" {
		header.Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		header.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	header.Set("Cache-Control", uploadCacheControl)
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.Warn("failed to write upload body",
			slog.String("name", chi.URLParam(r, "name")),
			slog.String("error", err.Error()),
		)
	}
}
