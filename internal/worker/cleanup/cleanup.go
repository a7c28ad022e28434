// Package cleanup は連携トークンの自動削除ジョブを提供する。
// 使用済みまたは期限切れのトークンを日次バッチで削除する。
// 死んだトークンは消費できないため、削除は連携セマンティクスに影響しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iamserge/photolectic/internal/repository"
)

// CleanupJob は死んだ連携トークンの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	tokens repository.LinkTokenRepository
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(tokens repository.LinkTokenRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		tokens: tokens,
		logger: logger,
	}
}

// Run は使用済みまたは期限切れの連携トークンを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.tokens.DeleteDead(ctx, start)
	if err != nil {
		j.logger.Error("連携トークンのクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("連携トークンのクリーンアップに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("連携トークンのクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は日次のクリーンアップループをブロッキングで実行する。
// 起動直後に1回実行し、以降は24時間ごとに実行する。
// コンテキストのキャンセルで終了する。
func (j *CleanupJob) Start(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}
