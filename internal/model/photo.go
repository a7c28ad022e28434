package model

import "time"

// PhotoStatus は写真の審査状態を表す。
type PhotoStatus string

const (
	// StatusUploading はアップロード処理中を示す。
	StatusUploading PhotoStatus = "UPLOADING"
	// StatusPendingReview は審査待ちを示す。Telegram経由で取り込まれた写真は必ずこの状態で作成される。
	StatusPendingReview PhotoStatus = "PENDING_REVIEW"
	// StatusVerified は審査通過（人間撮影の検証済み）を示す。
	StatusVerified PhotoStatus = "VERIFIED"
	// StatusRejected は審査却下を示す。
	StatusRejected PhotoStatus = "REJECTED"
)

// Photo はマーケットプレイスに登録された写真を表す。
// FileHashはコンテンツのSHA-256で、グローバルに一意。
// 同一バイナリの再投稿はこのハッシュの一意性制約で重複排除される。
type Photo struct {
	ID             string
	PhotographerID string
	Title          string
	Description    string
	FileURL        string
	ThumbnailURL   string
	StorageKey     string
	Status         PhotoStatus
	FileSize       int64
	Width          int
	Height         int
	MimeType       string
	FileHash       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tag は写真の検索タグを表す。Slugは名前から決定的に導出され一意。
type Tag struct {
	ID   string
	Name string
	Slug string
}

// PhotoStatusCounts はユーザーの写真を状態ごとに集計した結果。
type PhotoStatusCounts struct {
	Total          int
	Verified       int
	PendingReview  int
	Rejected       int
	Uploading      int
	LicenseRequest int // 全写真に対するライセンス申請の合計数
}

// PhotoSummary は写真一覧表示用のサマリー。
type PhotoSummary struct {
	Title               string
	Status              PhotoStatus
	CreatedAt           time.Time
	LicenseRequestCount int
}
