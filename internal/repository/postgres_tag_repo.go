package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/iamserge/photolectic/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// GetOrCreate はslugでタグを取得し、存在しなければ作成する。
// INSERT ... ON CONFLICT DO NOTHING の後に必ずSELECTで読み直すため、
// 同一slugの並行作成でも重複行は生まれず、どちらの呼び出しも同じ行を得る。
func (r *PostgresTagRepo) GetOrCreate(ctx context.Context, name, slug string) (*model.Tag, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO NOTHING`,
		uuid.New().String(), name, slug,
	)
	if err != nil {
		return nil, fmt.Errorf("タグの作成に失敗しました: %w", err)
	}

	tag := &model.Tag{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE slug = $1`,
		slug,
	).Scan(&tag.ID, &tag.Name, &tag.Slug)
	if err == sql.ErrNoRows {
		// INSERT直後のSELECTで行が見えないのは想定外
		return nil, fmt.Errorf("タグの取得に失敗しました: slug=%s", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}

	return tag, nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
