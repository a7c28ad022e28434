package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/iamserge/photolectic/internal/model"
)

// ErrDuplicateFileHash は同一バイナリコンテンツがすでに登録済みであることを示す。
// photosテーブルのfile_hash一意性制約違反から変換される。
// 事前チェックをすり抜けた並行投稿でも、この制約が最終的な重複排除の守りになる。
var ErrDuplicateFileHash = errors.New("同一コンテンツの写真がすでに存在します")

// pqUniqueViolation はPostgreSQLの一意性制約違反のエラーコード。
const pqUniqueViolation = "23505"

// PostgresPhotoRepo はPostgreSQLを使用した写真リポジトリ。
type PostgresPhotoRepo struct {
	db *sql.DB
}

// NewPostgresPhotoRepo はPostgresPhotoRepoを生成する。
func NewPostgresPhotoRepo(db *sql.DB) *PostgresPhotoRepo {
	return &PostgresPhotoRepo{db: db}
}

// FindByFileHash はコンテンツハッシュで写真を検索する。見つからない場合はnilを返す。
func (r *PostgresPhotoRepo) FindByFileHash(ctx context.Context, fileHash string) (*model.Photo, error) {
	photo := &model.Photo{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, photographer_id, title, description, file_url, thumbnail_url, storage_key,
		        status, file_size, width, height, mime_type, file_hash, created_at, updated_at
		 FROM photos WHERE file_hash = $1`,
		fileHash,
	).Scan(
		&photo.ID, &photo.PhotographerID, &photo.Title, &photo.Description,
		&photo.FileURL, &photo.ThumbnailURL, &photo.StorageKey,
		&photo.Status, &photo.FileSize, &photo.Width, &photo.Height,
		&photo.MimeType, &photo.FileHash, &photo.CreatedAt, &photo.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("写真のハッシュ検索に失敗しました: %w", err)
	}

	return photo, nil
}

// CreateWithTags は写真とタグ関連付けを同一トランザクションで作成する。
// file_hashの一意性制約違反はErrDuplicateFileHashとして返す。
func (r *PostgresPhotoRepo) CreateWithTags(ctx context.Context, photo *model.Photo, tagIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 写真を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO photos (id, photographer_id, title, description, file_url, thumbnail_url,
		                     storage_key, status, file_size, width, height, mime_type, file_hash,
		                     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		photo.ID, photo.PhotographerID, photo.Title, photo.Description,
		photo.FileURL, photo.ThumbnailURL, photo.StorageKey,
		photo.Status, photo.FileSize, photo.Width, photo.Height,
		photo.MimeType, photo.FileHash, photo.CreatedAt, photo.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateFileHash
		}
		return fmt.Errorf("写真の作成に失敗しました: %w", err)
	}

	// タグ関連付けを作成
	for _, tagID := range tagIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO photo_tags (photo_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT (photo_id, tag_id) DO NOTHING`,
			photo.ID, tagID,
		)
		if err != nil {
			return fmt.Errorf("タグ関連付けの作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountByPhotographer は写真家の写真を状態ごとに集計し、
// ライセンス申請の合計数とあわせて返す。
func (r *PostgresPhotoRepo) CountByPhotographer(ctx context.Context, photographerID string) (model.PhotoStatusCounts, error) {
	counts := model.PhotoStatusCounts{}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM photos WHERE photographer_id = $1 GROUP BY status`,
		photographerID,
	)
	if err != nil {
		return counts, fmt.Errorf("写真の状態別集計に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status model.PhotoStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return counts, fmt.Errorf("写真の状態別集計のスキャンに失敗しました: %w", err)
		}
		counts.Total += count
		switch status {
		case model.StatusVerified:
			counts.Verified = count
		case model.StatusPendingReview:
			counts.PendingReview = count
		case model.StatusRejected:
			counts.Rejected = count
		case model.StatusUploading:
			counts.Uploading = count
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("写真の状態別集計の読み取りに失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM license_requests lr
		 JOIN photos p ON p.id = lr.photo_id
		 WHERE p.photographer_id = $1`,
		photographerID,
	).Scan(&counts.LicenseRequest)
	if err != nil {
		return counts, fmt.Errorf("ライセンス申請数の集計に失敗しました: %w", err)
	}

	return counts, nil
}

// ListRecentByPhotographer は写真家の最新の写真をライセンス申請数付きで返す。
func (r *PostgresPhotoRepo) ListRecentByPhotographer(ctx context.Context, photographerID string, limit int) ([]model.PhotoSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.title, p.status, p.created_at,
		        (SELECT COUNT(*) FROM license_requests lr WHERE lr.photo_id = p.id)
		 FROM photos p
		 WHERE p.photographer_id = $1
		 ORDER BY p.created_at DESC
		 LIMIT $2`,
		photographerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("最新写真の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var summaries []model.PhotoSummary
	for rows.Next() {
		var s model.PhotoSummary
		if err := rows.Scan(&s.Title, &s.Status, &s.CreatedAt, &s.LicenseRequestCount); err != nil {
			return nil, fmt.Errorf("最新写真のスキャンに失敗しました: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("最新写真の読み取りに失敗しました: %w", err)
	}

	return summaries, nil
}

// compile-time interface check
var _ PhotoRepository = (*PostgresPhotoRepo)(nil)
