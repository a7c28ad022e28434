package security

import (
	"testing"
)

// HTMLタグが全て除去されることを検証
func TestTextSanitizer_StripsAllTags(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"プレーンテキストはそのまま", "Alice", "Alice"},
		{"boldタグの除去", "<b>Alice</b>", "Alice"},
		{"scriptタグは内容ごと除去", `<script>alert("x")</script>Alice`, "Alice"},
		{"入れ子タグの除去", "<a href=\"https://evil.example\"><i>click</i></a>", "click"},
		{"空文字列", "", ""},
		{"日本語テキストの保持", "夕暮れの桟橋", "夕暮れの桟橋"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// サニタイズが冪等であることを検証
func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	inputs := []string{"Alice", "<b>bold</b>", "plain & simple"}
	for _, in := range inputs {
		once := s.Sanitize(in)
		twice := s.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize(Sanitize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

// インターフェースを満たすことを検証
func TestTextSanitizer_ImplementsInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
