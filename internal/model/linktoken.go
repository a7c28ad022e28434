package model

import "time"

// LinkToken はTelegramアカウント連携用のワンタイムトークンを表す。
// OPEN → USED の遷移はちょうど1回だけ許され、期限切れの未使用トークンは
// 受理されない（別途の期限切れ掃除は必須ではない）。
type LinkToken struct {
	ID        string
	Token     string // 不透明なランダム文字列
	UserID    string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Redeemable は現時点でトークンが使用可能かを返す。
// 使用済み、または期限切れの場合はfalse。
func (t *LinkToken) Redeemable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
