// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

const (
	// RolePhotographer は写真のアップロードが許可された写真家を示す。
	RolePhotographer Role = "PHOTOGRAPHER"
	// RoleBuyer はライセンス購入者を示す。
	RoleBuyer Role = "BUYER"
	// RoleAdmin は審査・管理操作を行う管理者を示す。
	RoleAdmin Role = "ADMIN"
)

// User はサービス利用ユーザーを表す。
// Telegram連携フィールド（TelegramUserID, TelegramUsername, TelegramLinkedAt）は
// 3つ同時に設定され、3つ同時に解除される。
type User struct {
	ID               string
	Name             string
	Roles            []Role
	TelegramUserID   *string // Telegram上のユーザーID。未連携の場合はnil。
	TelegramUsername *string
	TelegramLinkedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasRole は指定された役割を持つかを返す。
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsPhotographer は写真家役割を持つかを返す。
func (u *User) IsPhotographer() bool {
	return u.HasRole(RolePhotographer)
}

// IsLinked はTelegramアカウントが連携済みかを返す。
func (u *User) IsLinked() bool {
	return u.TelegramUserID != nil && *u.TelegramUserID != ""
}
