package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はストア疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// Pinger はストアの疎通確認インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	pinger Pinger
	now    func() time.Time
}

// NewHealthHandler はHealthHandlerを生成する。pingerがnilの場合は常に正常を返す。
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger, now: time.Now}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health はストアへの疎通を確認して結果を返す。
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.pinger.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Timestamp: h.now().UTC()})
			return
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: h.now().UTC()})
}
