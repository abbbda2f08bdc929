// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// expires_atを超過したセッション行を定期バッチで削除する。
// セッションストアの肥大化を防ぎ、失効済みセッションIDの再利用を不可能にする。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionSweeper は期限切れセッションの削除を抽象化するインターフェース。
// repository.SessionRepositoryのDeleteExpiredに対応する。
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweepMetrics は削除件数をメトリクスに記録する。nilを許容する。
type SweepMetrics interface {
	RecordSessionsSwept(count int64)
}

// SweepJob は期限切れセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type SweepJob struct {
	sessions SessionSweeper
	metrics  SweepMetrics
	logger   *slog.Logger
}

// NewSweepJob は新しいSweepJobを生成する。
func NewSweepJob(sessions SessionSweeper, metrics SweepMetrics, logger *slog.Logger) *SweepJob {
	return &SweepJob{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run は期限切れセッションを削除する。
// expires_atが現在時刻より前のセッションをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunPeriodic はintervalごとにRunを実行し続ける。
// コンテキストのキャンセルで停止する。起動直後に1回実行する。
func (j *SweepJob) RunPeriodic(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("初回のセッションクリーンアップに失敗しました", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップループを停止します")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("セッションクリーンアップに失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
