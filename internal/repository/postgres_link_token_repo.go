package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamserge/photolectic/internal/model"
)

// PostgresLinkTokenRepo はPostgreSQLを使用した連携トークンリポジトリ。
type PostgresLinkTokenRepo struct {
	db *sql.DB
}

// NewPostgresLinkTokenRepo はPostgresLinkTokenRepoを生成する。
func NewPostgresLinkTokenRepo(db *sql.DB) *PostgresLinkTokenRepo {
	return &PostgresLinkTokenRepo{db: db}
}

// Create は連携トークンを作成する。
func (r *PostgresLinkTokenRepo) Create(ctx context.Context, token *model.LinkToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO link_tokens (id, token, user_id, expires_at, used, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.Token, token.UserID, token.ExpiresAt, token.Used, token.UsedAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("連携トークンの作成に失敗しました: %w", err)
	}
	return nil
}

// Redeem はトークンを原子的に消費する。
// 条件付きUPDATEが1行だけを対象とするため、並行した二重消費は
// WHERE句の used = FALSE により片方だけが成功する。
// 消費できない場合（存在しない・使用済み・期限切れ）はnilを返す。
func (r *PostgresLinkTokenRepo) Redeem(ctx context.Context, rawToken string, now time.Time) (*model.LinkToken, error) {
	token := &model.LinkToken{}
	var usedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`UPDATE link_tokens
		 SET used = TRUE, used_at = $2
		 WHERE token = $1 AND used = FALSE AND expires_at > $2
		 RETURNING id, token, user_id, expires_at, used, used_at, created_at`,
		rawToken, now,
	).Scan(
		&token.ID, &token.Token, &token.UserID,
		&token.ExpiresAt, &token.Used, &usedAt, &token.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("連携トークンの消費に失敗しました: %w", err)
	}

	if usedAt.Valid {
		token.UsedAt = &usedAt.Time
	}
	return token, nil
}

// Restore は消費済みトークンを未使用に戻す。
// Redeem後のTelegram連携更新が失敗した場合、トークンを使い潰さずに
// 利用者が同じコードで再試行できるようにする。
func (r *PostgresLinkTokenRepo) Restore(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE link_tokens SET used = FALSE, used_at = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("連携トークンの復元に失敗しました: %w", err)
	}
	return nil
}

// DeleteDead は期限切れまたは使用済みのトークンを削除し、削除件数を返す。
func (r *PostgresLinkTokenRepo) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM link_tokens WHERE used = TRUE OR expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("連携トークンの削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ LinkTokenRepository = (*PostgresLinkTokenRepo)(nil)
