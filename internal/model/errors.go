package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTokenNotFound       = "TOKEN_NOT_FOUND"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeDetailFetchFailed   = "DETAIL_FETCH_FAILED"
)

// NewTokenNotFoundError は公開トークンに対応する資格情報が存在しない場合のエラーを生成する。
// ユーザーには403のみを返し、トークンの存在有無以上の詳細は漏らさない。
func NewTokenNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  "指定されたトークンに対応する登録が見つかりません。",
		Category: "auth",
		Action:   "ボットで認可手続きをやり直してください。",
	}
}

// NewValidationFailedError は資格情報の検証に失敗した場合のエラーを生成する。
// このエラーが返った場合、資格情報は一切永続化されていない。
func NewValidationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "資格情報の検証に失敗しました。",
		Category: "validation",
		Action:   "スポーツサイトからsessionidクッキーを取得し直して再送してください。",
	}
}

// NewUpstreamUnavailableError はスケジュール取得の失敗・タイムアウトを表すエラーを生成する。
// カレンダー構築全体を中断し、呼び出し元に失敗を明示する。
func NewUpstreamUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("上流サービスからスケジュールを取得できませんでした: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDetailFetchFailedError は単一イベントの詳細取得失敗を表すエラーを生成する。
// カレンダー構築は中断せず、該当イベントのみスキップされる。
func NewDetailFetchFailedError(eventID int64) *APIError {
	return &APIError{
		Code:     ErrCodeDetailFetchFailed,
		Message:  fmt.Sprintf("イベント詳細の取得に失敗しました: event_id=%d", eventID),
		Category: "upstream",
		Action:   "次回のカレンダー取得時に自動的に再試行されます。",
	}
}

// IsUpstreamUnavailable はエラーがUPSTREAM_UNAVAILABLEかを判定する。
func IsUpstreamUnavailable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == ErrCodeUpstreamUnavailable
	}
	return false
}

// IsValidationFailed はエラーがVALIDATION_FAILEDかを判定する。
func IsValidationFailed(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == ErrCodeValidationFailed
	}
	return false
}
