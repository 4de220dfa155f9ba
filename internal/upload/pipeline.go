// Package upload は画像アップロードの検証・変換・公開を行う。
package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp" // WebP入力のデコーダー登録

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/storage"
)

// 変換後の画像サイズと品質
const (
	MaxWidth     = 1200
	MaxHeight    = 800
	WebPQuality  = 85
	DefaultLimit = 5 * 1024 * 1024

	// MaxPixels はデコードを許可する画素数の上限。
	// 圧縮率の高い画像はバイト数が小さくても展開後のラスタが巨大になる。
	MaxPixels = 40_000_000

	// PublicPrefix は公開URLのパス接頭辞。
	PublicPrefix = "/uploads/"
)

// アップロード結果のメトリクスラベル
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// allowedTypes は受け付ける拡張子と、内容から判定したMIMEタイプの対応。
var allowedTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Recorder はアップロード結果をメトリクスに記録するインターフェース。
type Recorder interface {
	RecordUpload(outcome string, bytes int)
}

// Config はPipelineの設定。
type Config struct {
	TempDir  string // 元画像を一時保存するディレクトリ
	MaxBytes int64  // 0の場合はDefaultLimit
}

// Pipeline は画像を検証し、縮小・WebP変換してStoreに公開する。
type Pipeline struct {
	store    storage.Store
	tempDir  string
	maxBytes int64
	metrics  Recorder
	now      func() time.Time
}

// NewPipeline はPipelineを生成する。metricsはnilでもよい。
func NewPipeline(store storage.Store, cfg Config, metrics Recorder) *Pipeline {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultLimit
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Pipeline{
		store:    store,
		tempDir:  tempDir,
		maxBytes: maxBytes,
		metrics:  metrics,
		now:      time.Now,
	}
}

// MaxBytes は受け付ける最大サイズを返す。
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

// AcceptImage は画像を検証・変換して公開し、公開URL（/uploads/<name>）を返す。
//
// サイズ超過や非対応形式の場合はUNSUPPORTED_MEDIAの*model.APIErrorを返す。
// 変換に失敗した場合はUPLOAD_FAILEDを返し、公開名のファイルは作成しない。
// 一時ファイルは成否にかかわらず削除を試み、削除失敗は呼び出し元に返さない。
func (p *Pipeline) AcceptImage(ctx context.Context, data []byte, filename string) (string, error) {
	ext, err := p.validate(data, filename)
	if err != nil {
		p.record(OutcomeRejected, 0)
		return "", err
	}

	base := fmt.Sprintf("image-%d-%s", p.now().UnixMilli(), uuid.NewString())
	tempPath, err := p.writeTemp(base+ext, data)
	if err != nil {
		p.record(OutcomeFailed, 0)
		slog.Error("failed to write upload temp file", slog.String("error", err.Error()))
		return "", model.NewUploadFailedError()
	}
	defer removeTemp(tempPath)

	encoded, err := transcode(tempPath)
	if err != nil {
		p.record(OutcomeFailed, 0)
		slog.Warn("failed to transcode upload",
			slog.String("ext", ext),
			slog.String("error", err.Error()),
		)
		return "", model.NewUploadFailedError()
	}

	name := base + "-optimized.webp"
	if err := p.store.Put(ctx, name, encoded, "image/webp"); err != nil {
		p.record(OutcomeFailed, 0)
		slog.Error("failed to store upload",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return "", model.NewUploadFailedError()
	}

	p.record(OutcomeSuccess, len(data))
	slog.Info("upload stored",
		slog.String("name", name),
		slog.Int("original_bytes", len(data)),
		slog.Int("stored_bytes", len(encoded)),
	)
	return PublicPrefix + name, nil
}

// validate はサイズ・拡張子・内容のMIMEタイプを検証し、正規化した拡張子を返す。
func (p *Pipeline) validate(data []byte, filename string) (string, error) {
	if int64(len(data)) > p.maxBytes {
		return "", model.NewUnsupportedMediaError("file is too large")
	}
	if len(data) == 0 {
		return "", model.NewUnsupportedMediaError("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedTypes[ext]; !ok {
		return "", model.NewUnsupportedMediaError("file type is not allowed")
	}
	if !allowedContent(mimetype.Detect(data)) {
		return "", model.NewUnsupportedMediaError("file content is not an allowed image type")
	}
	// ヘッダーが読めない画像は変換時にUPLOAD_FAILEDとなる
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
			return "", model.NewUnsupportedMediaError("image dimensions are too large")
		}
	}
	return ext, nil
}

// allowedContent は内容から判定したMIMEタイプが許可形式のいずれかであるかを返す。
// 拡張子と内容の形式が一致している必要はない。
func allowedContent(detected *mimetype.MIME) bool {
	for _, t := range allowedTypes {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

func (p *Pipeline) writeTemp(name string, data []byte) (string, error) {
	if err := os.MkdirAll(p.tempDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	path := filepath.Join(p.tempDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

// transcode は画像を1200x800に収まるよう縮小（拡大はしない）し、WebPにエンコードする。
func transcode(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove upload temp file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pipeline) record(outcome string, n int) {
	if p.metrics != nil {
		p.metrics.RecordUpload(outcome, n)
	}
}
