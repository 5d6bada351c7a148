package security

import (
	"strings"

	"golang.org/x/net/html"
)

// EscapeRichText はTelegramのHTMLメッセージに安全に埋め込めるよう
// &、<、> をエンティティに置換する。I/Oを伴わない純粋なテキストユーティリティ。
// 同一入力に対して常に同一出力を返す（冪等ではない点に注意: 二重適用で&amp;amp;になる）。
func EscapeRichText(s string) string {
	return richTextReplacer.Replace(s)
}

// richTextReplacer は&を最初に置換するため、Replacerの同時置換セマンティクスに依存する。
var richTextReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// defaultDisplayName は表示名が抽出できなかった場合の代替値。
// 抽出失敗は検証失敗にはしない（ベストエフォート）。
const defaultDisplayName = "Student"

// ExtractDisplayName はプロフィールページのHTMLから表示名を抽出する。
// <h1 class="card-title">のテキスト内容を探し、見つからない場合は
// 汎用プレースホルダを返す。戻り値はエスケープ前の生テキスト。
func ExtractDisplayName(htmlBody string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlBody))

	inTitle := false
	var name strings.Builder

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// EOFまたは不正なHTML。抽出済みなら返し、なければプレースホルダ。
			return finishDisplayName(name.String())

		case html.StartTagToken:
			tn, hasAttr := tokenizer.TagName()
			if string(tn) != "h1" || !hasAttr {
				continue
			}
			for {
				key, val, more := tokenizer.TagAttr()
				if string(key) == "class" && hasClass(string(val), "card-title") {
					inTitle = true
				}
				if !more {
					break
				}
			}

		case html.TextToken:
			if inTitle {
				name.Write(tokenizer.Text())
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if inTitle && string(tn) == "h1" {
				return finishDisplayName(name.String())
			}
		}
	}
}

// finishDisplayName は抽出結果をトリムし、空の場合はプレースホルダを返す。
func finishDisplayName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultDisplayName
	}
	return trimmed
}

// hasClass はclass属性値に指定クラスが含まれるかを検証する。
func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}
