package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/iamserge/photolectic/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userSelectColumns = `id, name, roles, telegram_user_id, telegram_username, telegram_linked_at, created_at, updated_at`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userSelectColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByTelegramUserID はTelegramユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByTelegramUserID(ctx context.Context, telegramUserID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userSelectColumns+` FROM users WHERE telegram_user_id = $1`,
		telegramUserID,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by telegram ID: %w", err)
	}
	return user, nil
}

// LinkTelegram はTelegram連携フィールド3つを同時に設定する。
func (r *PostgresUserRepo) LinkTelegram(ctx context.Context, userID, telegramUserID, telegramUsername string, linkedAt time.Time) error {
	var username sql.NullString
	if telegramUsername != "" {
		username = sql.NullString{String: telegramUsername, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET telegram_user_id = $2, telegram_username = $3, telegram_linked_at = $4, updated_at = $4
		 WHERE id = $1`,
		userID, telegramUserID, username, linkedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to link telegram identity: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// UnlinkTelegram はTelegram連携フィールド3つを同時に解除する。
func (r *PostgresUserRepo) UnlinkTelegram(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET telegram_user_id = NULL, telegram_username = NULL, telegram_linked_at = NULL, updated_at = now()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to unlink telegram identity: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// scanUser は1行のユーザーをスキャンする。sql.ErrNoRowsはnilに変換する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var roles pq.StringArray
	var tgUserID, tgUsername sql.NullString
	var tgLinkedAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.Name, &roles,
		&tgUserID, &tgUsername, &tgLinkedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Roles = make([]model.Role, len(roles))
	for i, role := range roles {
		user.Roles[i] = model.Role(role)
	}
	if tgUserID.Valid {
		user.TelegramUserID = &tgUserID.String
	}
	if tgUsername.Valid {
		user.TelegramUsername = &tgUsername.String
	}
	if tgLinkedAt.Valid {
		user.TelegramLinkedAt = &tgLinkedAt.Time
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
