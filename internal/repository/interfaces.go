// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/iamserge/photolectic/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByTelegramUserID はTelegramユーザーIDでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByTelegramUserID(ctx context.Context, telegramUserID string) (*model.User, error)

	// LinkTelegram はTelegram連携フィールド3つを同時に設定する。
	LinkTelegram(ctx context.Context, userID, telegramUserID, telegramUsername string, linkedAt time.Time) error

	// UnlinkTelegram はTelegram連携フィールド3つを同時に解除する。
	UnlinkTelegram(ctx context.Context, userID string) error
}

// LinkTokenRepository は連携トークンの永続化インターフェース。
type LinkTokenRepository interface {
	// Create は連携トークンを作成する。
	Create(ctx context.Context, token *model.LinkToken) error

	// Redeem はトークンを原子的に消費する。
	// used = false かつ期限内の行のみをUPDATEで使用済みに変更し、
	// 成功した場合に消費後のトークンを返す。
	// 存在しない・使用済み・期限切れのいずれの場合もnilを返す。
	// 並行した二重消費はちょうど1回だけ成功する。
	Redeem(ctx context.Context, rawToken string, now time.Time) (*model.LinkToken, error)

	// Restore は消費済みトークンを未使用に戻す。
	// 消費後の連携処理が失敗した場合の補償に使用する。
	Restore(ctx context.Context, id string) error

	// DeleteDead は期限切れまたは使用済みのトークンを削除し、削除件数を返す。
	DeleteDead(ctx context.Context, now time.Time) (int64, error)
}

// PhotoRepository は写真データの永続化インターフェース。
type PhotoRepository interface {
	// FindByFileHash はコンテンツハッシュで写真を検索する。
	// 重複排除の事前チェックに使用する。見つからない場合はnilを返す。
	FindByFileHash(ctx context.Context, fileHash string) (*model.Photo, error)

	// CreateWithTags は写真とタグ関連付けを同一トランザクションで作成する。
	// file_hashの一意性制約違反はErrDuplicateFileHashとして返す。
	CreateWithTags(ctx context.Context, photo *model.Photo, tagIDs []string) error

	// CountByPhotographer は写真家の写真を状態ごとに集計し、
	// ライセンス申請の合計数とあわせて返す。
	CountByPhotographer(ctx context.Context, photographerID string) (model.PhotoStatusCounts, error)

	// ListRecentByPhotographer は写真家の最新の写真をライセンス申請数付きで返す。
	// created_at降順、最大limit件。
	ListRecentByPhotographer(ctx context.Context, photographerID string, limit int) ([]model.PhotoSummary, error)
}

// TagRepository はタグデータの永続化インターフェース。
type TagRepository interface {
	// GetOrCreate はslugでタグを取得し、存在しなければ作成する。
	// 同一slugの並行作成はON CONFLICTで1行に収束する。
	GetOrCreate(ctx context.Context, name, slug string) (*model.Tag, error)
}
