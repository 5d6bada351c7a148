package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
)

// PostgresEventCacheRepo はPostgreSQLを使用したイベント詳細キャッシュリポジトリ。
type PostgresEventCacheRepo struct {
	db *sql.DB
}

// NewPostgresEventCacheRepo はPostgresEventCacheRepoを生成する。
func NewPostgresEventCacheRepo(db *sql.DB) *PostgresEventCacheRepo {
	return &PostgresEventCacheRepo{db: db}
}

// GetDescription は指定イベントのキャッシュ済み説明文を取得する。
// エントリが存在しないか期限切れの場合はnilを返す。
// 期限判定はクエリ内で行うため、期限切れエントリが残っていても読み取られることはない。
func (r *PostgresEventCacheRepo) GetDescription(ctx context.Context, eventID int64) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT event_id, description, expires_at
		 FROM event_cache
		 WHERE event_id = $1 AND expires_at > now()`,
		eventID,
	).Scan(&entry.EventID, &entry.Description, &entry.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cache entry: %w", err)
	}

	return entry, nil
}

// PutDescription は説明文をTTL付きでUPSERTする。
// 単一のUPSERT文で書き込むため、部分的に書かれたエントリが観測されることはない。
func (r *PostgresEventCacheRepo) PutDescription(ctx context.Context, eventID int64, description string, ttl time.Duration) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_cache (event_id, description, expires_at)
		 VALUES ($1, $2, now() + $3::interval)
		 ON CONFLICT (event_id) DO UPDATE
		 SET description = EXCLUDED.description, expires_at = EXCLUDED.expires_at`,
		eventID, description, fmt.Sprintf("%d seconds", int(ttl.Seconds())),
	)
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れエントリを削除し、削除件数を返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (r *PostgresEventCacheRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ EventCacheRepository = (*PostgresEventCacheRepo)(nil)
