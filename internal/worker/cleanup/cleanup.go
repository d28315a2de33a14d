// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 削除は冪等で、対象が無い場合もエラーにならない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionReaper は期限切れセッションを削除するインターフェース。
// repository.SessionRepositoryが実装する。
type SessionReaper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ReapMetrics は削除件数のメトリクス記録インターフェース。
type ReapMetrics interface {
	RecordSessionsReaped(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
type CleanupJob struct {
	reaper  SessionReaper
	metrics ReapMetrics
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(reaper SessionReaper, metrics ReapMetrics, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		reaper:  reaper,
		metrics: metrics,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Run は現在時刻の時点で期限切れのセッションを削除し、削除件数を返す。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deleted, err := j.reaper.DeleteExpired(ctx, j.nowFunc())
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsReaped(deleted)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return deleted, nil
}

// Start は起動直後に1回、その後interval毎にRunを実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに記録して次の周期を待つ。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
