package security

import "testing"

// TestDescriptionSanitizer_StripsTags はHTMLタグがすべて除去されることを検証する。
func TestDescriptionSanitizer_StripsTags(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<p>Functional training</p><script>alert(1)</script>`)
	want := "Functional training"

	if got != want {
		t.Errorf("Sanitize() = %q, want %q", got, want)
	}
}

// TestDescriptionSanitizer_PlainTextUnchanged はプレーンテキストがそのまま返ることを検証する。
func TestDescriptionSanitizer_PlainTextUnchanged(t *testing.T) {
	s := NewDescriptionSanitizer()

	input := "Swimming for beginners"
	if got := s.Sanitize(input); got != input {
		t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
	}
}

// TestDescriptionSanitizer_Empty は空入力が空出力になることを検証する。
func TestDescriptionSanitizer_Empty(t *testing.T) {
	s := NewDescriptionSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

// TestDescriptionSanitizer_Idempotent は二重適用で出力が変わらないことを検証する。
func TestDescriptionSanitizer_Idempotent(t *testing.T) {
	s := NewDescriptionSanitizer()

	once := s.Sanitize("<b>Yoga & Pilates</b>")
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("Sanitize is not idempotent: %q != %q", once, twice)
	}
}
