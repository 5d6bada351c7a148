// Package worker はバックグラウンドジョブを提供する。
// 現在は期限切れイベントキャッシュの定期削除のみ。
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiredEntryDeleter は期限切れキャッシュ削除のインターフェース。
type ExpiredEntryDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CacheJanitor は期限切れイベントキャッシュの削除ジョブ。
// キャッシュの読み出しはexpires_atで常にフィルタされるため、
// このジョブは正しさではなくテーブルサイズの維持のために動く。
type CacheJanitor struct {
	cache   ExpiredEntryDeleter
	logger  *slog.Logger
	timeout time.Duration
}

// NewCacheJanitor はCacheJanitorの新しいインスタンスを生成する。
func NewCacheJanitor(cache ExpiredEntryDeleter, logger *slog.Logger) *CacheJanitor {
	return &CacheJanitor{
		cache:   cache,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// RunOnce は期限切れエントリを1回削除する。
func (j *CacheJanitor) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	deleted, err := j.cache.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れキャッシュの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れキャッシュの削除に失敗しました: %w", err)
	}

	if deleted > 0 {
		j.logger.Info("期限切れキャッシュを削除しました",
			slog.Int64("deleted", deleted),
		)
	}
	return nil
}

// Start はcronスケジュールでジョブを開始し、稼働中のスケジューラを返す。
// 停止は返却されたcron.CronのStopで行う。
func (j *CacheJanitor) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		if err := j.RunOnce(ctx); err != nil {
			// RunOnceが既にログ済み。cronは次回スケジュールで再試行する
			return
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cronスケジュール %q の登録に失敗しました: %w", spec, err)
	}

	c.Start()
	j.logger.Info("キャッシュ清掃ジョブを開始しました",
		slog.String("schedule", spec),
	)
	return c, nil
}
