package security

import "testing"

// TestEscapeRichText はTelegram HTML向けの3文字エスケープを検証する。
func TestEscapeRichText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキスト", input: "Ivan Petrov", want: "Ivan Petrov"},
		{name: "アンパサンド", input: "Tom & Jerry", want: "Tom &amp; Jerry"},
		{name: "タグ注入", input: "<b>bold</b>", want: "&lt;b&gt;bold&lt;/b&gt;"},
		{name: "混在", input: "a<b & c>d", want: "a&lt;b &amp; c&gt;d"},
		{name: "空文字列", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeRichText(tt.input)
			if got != tt.want {
				t.Errorf("EscapeRichText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestExtractDisplayName はプロフィールHTMLからの表示名抽出を検証する。
func TestExtractDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "card-titleから抽出",
			input: `<html><body><h1 class="card-title">Ivan Petrov</h1></body></html>`,
			want:  "Ivan Petrov",
		},
		{
			name:  "複数クラスでも抽出",
			input: `<h1 class="card-title mb-2">Anna K</h1>`,
			want:  "Anna K",
		},
		{
			name:  "前後の空白はトリム",
			input: "<h1 class=\"card-title\">\n  Ivan Petrov\n</h1>",
			want:  "Ivan Petrov",
		},
		{
			name:  "h1はあるがクラス不一致",
			input: `<h1 class="page-title">Not Me</h1>`,
			want:  "Student",
		},
		{
			name:  "h1なし",
			input: `<div>profile</div>`,
			want:  "Student",
		},
		{
			name:  "空のh1",
			input: `<h1 class="card-title"></h1>`,
			want:  "Student",
		},
		{
			name:  "空のHTML",
			input: "",
			want:  "Student",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDisplayName(tt.input)
			if got != tt.want {
				t.Errorf("ExtractDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
