// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
)

// CredentialRepository は公開トークンと上流資格情報の紐付けの永続化インターフェース。
type CredentialRepository interface {
	// Get は指定トークンの資格情報を取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, token string) (*model.Credential, error)

	// Put は資格情報を保存する。既存トークンは上書きされる（last-write-wins、履歴なし）。
	Put(ctx context.Context, token, credential string) error
}

// EventCacheRepository はイベント詳細キャッシュの永続化インターフェース。
// キャッシュミス時の補充は呼び出し元（カレンダービルダー）が行う。
type EventCacheRepository interface {
	// GetDescription は指定イベントのキャッシュ済み説明文を取得する。
	// エントリが存在しないか期限切れの場合はnilを返す。
	GetDescription(ctx context.Context, eventID int64) (*model.CacheEntry, error)

	// PutDescription は説明文をTTL付きで保存する。既存エントリは上書きされ、期限もリセットされる。
	PutDescription(ctx context.Context, eventID int64, description string, ttl time.Duration) error

	// DeleteExpired は期限切れエントリを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
