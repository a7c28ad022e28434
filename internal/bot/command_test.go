package bot

import (
	"testing"

	"github.com/iamserge/photolectic/internal/telegram"
)

// テキストコマンドが正しいコマンド種別にパースされることを検証
func TestParseMessage_TextCommands(t *testing.T) {
	tests := []struct {
		name string
		text string
		want CommandKind
	}{
		{"startコマンド", "/start", CmdStart},
		{"statsコマンド", "/stats", CmdStats},
		{"photosコマンド", "/photos", CmdPhotos},
		{"helpコマンド", "/help", CmdHelp},
		{"unlinkコマンド", "/unlink", CmdUnlink},
		{"前後の空白は無視される", "  /stats  ", CmdStats},
		{"認識されないコマンド", "/doesnotexist", CmdUnknown},
		{"通常のテキスト", "こんにちは", CmdUnknown},
		{"空のテキスト", "", CmdUnknown},
		{"引数なしのlinkは不明扱い", "/link", CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMessage(&telegram.Message{Text: tt.text})
			if got.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.want)
			}
		})
	}
}

// /linkコマンドのトークン引数が抽出されることを検証
func TestParseMessage_LinkToken(t *testing.T) {
	got := ParseMessage(&telegram.Message{Text: "/link abc123def456"})

	if got.Kind != CmdLink {
		t.Fatalf("Kind = %q, want %q", got.Kind, CmdLink)
	}
	if got.LinkToken != "abc123def456" {
		t.Errorf("LinkToken = %q, want %q", got.LinkToken, "abc123def456")
	}
}

// トークン引数の余分な空白が除去されることを検証
func TestParseMessage_LinkToken_TrimsWhitespace(t *testing.T) {
	got := ParseMessage(&telegram.Message{Text: "/link   token-with-spaces   "})

	if got.Kind != CmdLink {
		t.Fatalf("Kind = %q, want %q", got.Kind, CmdLink)
	}
	if got.LinkToken != "token-with-spaces" {
		t.Errorf("LinkToken = %q, want %q", got.LinkToken, "token-with-spaces")
	}
}

// 写真添付が最高解像度バリアントとキャプション付きでパースされることを検証
func TestParseMessage_PhotoAttachment(t *testing.T) {
	msg := &telegram.Message{
		Caption: "Sunset at the pier",
		Photo: []telegram.PhotoSize{
			{FileID: "small", Width: 90, Height: 60},
			{FileID: "medium", Width: 320, Height: 213},
			{FileID: "large", Width: 1280, Height: 853},
		},
	}

	got := ParseMessage(msg)

	if got.Kind != CmdPhotoUpload {
		t.Fatalf("Kind = %q, want %q", got.Kind, CmdPhotoUpload)
	}
	if got.Photo == nil || got.Photo.FileID != "large" {
		t.Errorf("Photo = %+v, want 最高解像度のlarge", got.Photo)
	}
	if got.Caption != "Sunset at the pier" {
		t.Errorf("Caption = %q, want %q", got.Caption, "Sunset at the pier")
	}
}

// 写真添付はテキストより優先されることを検証
func TestParseMessage_PhotoTakesPrecedenceOverText(t *testing.T) {
	msg := &telegram.Message{
		Text:  "/stats",
		Photo: []telegram.PhotoSize{{FileID: "f1", Width: 100, Height: 100}},
	}

	got := ParseMessage(msg)

	if got.Kind != CmdPhotoUpload {
		t.Errorf("Kind = %q, want %q", got.Kind, CmdPhotoUpload)
	}
}
