// Package link はTelegramアカウント連携のワンタイムトークン発行・消費を提供する。
package link

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iamserge/photolectic/internal/model"
	"github.com/iamserge/photolectic/internal/repository"
)

// ServiceConfig は連携サービスの設定。
type ServiceConfig struct {
	TokenTTL time.Duration // トークンの有効期間
}

// Service はアカウント連携に関するビジネスロジックを提供する。
// トークンの発行・消費とユーザーのTelegram連携フィールドの変更を所有する。
type Service struct {
	tokenRepo repository.LinkTokenRepository
	userRepo  repository.UserRepository
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	tokenRepo repository.LinkTokenRepository,
	userRepo repository.UserRepository,
	config ServiceConfig,
) *Service {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 10 * time.Minute
	}
	return &Service{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		config:    config,
	}
}

// IssueToken は指定ユーザー向けの連携トークンを発行する。
// Webダッシュボードの設定画面から呼ばれる。トークンは短いTTLを持つ
// 不透明なランダム文字列で、1回だけ消費できる。
func (s *Service) IssueToken(ctx context.Context, userID string) (*model.LinkToken, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	raw, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate link token: %w", err)
	}

	now := time.Now()
	token := &model.LinkToken{
		ID:        uuid.New().String(),
		Token:     raw,
		UserID:    userID,
		ExpiresAt: now.Add(s.config.TokenTTL),
		Used:      false,
		CreatedAt: now,
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to save link token: %w", err)
	}

	slog.Info("連携トークンを発行しました",
		slog.String("user_id", userID),
		slog.Time("expires_at", token.ExpiresAt),
	)

	return token, nil
}

// Redeem は連携トークンを消費し、対象ユーザーのTelegram連携フィールドを設定する。
// トークンが存在しない・使用済み・期限切れの場合はErrInvalidOrExpiredTokenを返す。
// 消費はリポジトリ層の条件付きUPDATEにより原子的で、Webhookの再配送などで
// 同一トークンが並行して消費されてもちょうど1回だけ成功する。
// 消費後の連携フィールド更新が失敗した場合はトークンを未使用に戻し、
// 利用者が同じコードで再試行できるようにする。
func (s *Service) Redeem(ctx context.Context, rawToken, telegramUserID, telegramUsername string) (*model.User, error) {
	now := time.Now()

	token, err := s.tokenRepo.Redeem(ctx, rawToken, now)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem link token: %w", err)
	}
	if token == nil {
		return nil, model.ErrInvalidOrExpiredToken
	}

	if err := s.userRepo.LinkTelegram(ctx, token.UserID, telegramUserID, telegramUsername, now); err != nil {
		// 連携に失敗したトークンは使い潰さず、同じコードでの再試行を許す
		if restoreErr := s.tokenRepo.Restore(ctx, token.ID); restoreErr != nil {
			slog.Error("連携トークンの復元に失敗しました",
				slog.String("token_id", token.ID),
				slog.String("error", restoreErr.Error()),
			)
		}
		return nil, fmt.Errorf("failed to link telegram identity: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find linked user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	slog.Info("Telegramアカウントを連携しました",
		slog.String("user_id", user.ID),
		slog.String("telegram_user_id", telegramUserID),
	)

	return user, nil
}

// Unlink は指定ユーザーのTelegram連携フィールド3つを無条件に解除する。
func (s *Service) Unlink(ctx context.Context, userID string) error {
	if err := s.userRepo.UnlinkTelegram(ctx, userID); err != nil {
		return fmt.Errorf("failed to unlink telegram identity: %w", err)
	}

	slog.Info("Telegramアカウントの連携を解除しました",
		slog.String("user_id", userID),
	)
	return nil
}

// generateToken は暗号的に安全な不透明トークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
