// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー由来のテキストをサニタイズし、
// TelegramへのHTMLメッセージに埋め込む際のマークアップ注入を防ぐ。
// bluemondayライブラリの厳格ポリシーで、タグを一切通過させない。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// ユーザー名・キャプション・タイトルなど、利用者が制御できる文字列を
// HTML形式の返信メッセージへ埋め込む前に使用される。
type TextSanitizerService interface {
	// Sanitize はテキストからHTMLタグを全て除去し、安全な文字列を返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayの厳格ポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 厳格ポリシーのため許可タグは存在せず、全てのマークアップが除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストからHTMLタグを全て除去して返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
