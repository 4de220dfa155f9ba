// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 期限切れセッションは解決時にも無視されるため、このジョブはストアの肥大化を防ぐためだけに動く。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はジョブの既定実行間隔。
const DefaultInterval = time.Hour

// ExpiredSessionDeleter は期限切れセッションを削除するインターフェース。
// repository.SessionRepository が実装する。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepRecorder は削除件数をメトリクスに記録するインターフェース。
type SweepRecorder interface {
	RecordSessionsSwept(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	sessions ExpiredSessionDeleter
	metrics  SweepRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(sessions ExpiredSessionDeleter, metrics SweepRecorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻までに期限切れとなったセッションを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	deleted, err := j.sessions.DeleteExpired(ctx, start.UTC())
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(deleted)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降interval間隔でctxがキャンセルされるまで実行する。
// 失敗はログに残し、次回の実行を待つ。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
