package model

import "errors"

// 連携・取り込みフローで想定される制御フロー上のエラー。
// これらは例外ではなく期待される分岐であり、利用者向けのチャット返信に
// 変換される。スタックトレースや生のエラー文をエンドユーザーに送ってはならない。
var (
	// ErrInvalidOrExpiredToken は連携トークンが存在しない・使用済み・期限切れの
	// いずれかであることを示す。3つの原因は利用者には区別されない。
	ErrInvalidOrExpiredToken = errors.New("連携トークンが無効または期限切れです")

	// ErrUserNotFound は対象ユーザーが存在しないことを示す。
	ErrUserNotFound = errors.New("ユーザーが見つかりません")
)
