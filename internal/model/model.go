// Package model はドメインモデルを定義する。
package model

import "time"

// Credential は公開トークンと上流セッション資格情報の紐付けを表す。
// トークンはTelegramユーザーIDから導出された匿名識別子であり、
// 元のユーザーIDはどこにも保存されない。
type Credential struct {
	Token      string // 公開トークン（ソルト付きSHA-256の16進ダイジェスト）
	Credential string // 上流サイトのsessionidクッキー値（不透明文字列）
	UpdatedAt  time.Time
}

// CacheEntry はイベント詳細キャッシュのエントリを表す。
// 全ユーザーで共有されるグローバルキャッシュであり、event_idをキーとする。
type CacheEntry struct {
	EventID     int64
	Description string
	ExpiresAt   time.Time
}

// CalendarEvent はカレンダードキュメントに含まれる1イベントを表す。
type CalendarEvent struct {
	EventID     int64
	Title       string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
}

// CalendarDocument はカレンダードキュメントの組み立て済み内容を表す。
// リクエストごとに再構築され、永続化されない。
type CalendarDocument struct {
	Name        string // カレンダー表示名（X-WR-CALNAME）
	Timezone    string // 基準タイムゾーン（X-WR-TIMEZONE）
	Description string // カレンダー説明（X-WR-CALDESC）
	GeneratedAt time.Time
	Events      []CalendarEvent // 上流の返却順を維持する
}

// TotalEvents は含まれるイベントの件数を返す。
func (d *CalendarDocument) TotalEvents() int {
	return len(d.Events)
}

// Profile は上流サイトの資格情報検証で取得したユーザー情報を表す。
type Profile struct {
	DisplayName string // HTMLエスケープ済みの表示名
}
