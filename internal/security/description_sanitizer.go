package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService はイベント説明文のサニタイズ機能のインターフェースを定義する。
// 上流APIが返すスポーツ説明文にはHTML断片が混入することがあり、
// カレンダークライアントに渡す前にプレーンテキスト化する。
type DescriptionSanitizerService interface {
	// Sanitize はHTMLタグをすべて除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグを除去し、テキストのみを残す。
func NewDescriptionSanitizer() *descriptionSanitizer {
	return &descriptionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLタグをすべて除去したプレーンテキストを返す。
// bluemondayはテキストをエンティティエンコードして返すため、
// カレンダー説明文として自然な形に戻すためアンエスケープする。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
