package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iamserge/photolectic/internal/model"
)

// LinkServiceInterface は連携ハンドラーが必要とするサービスインターフェース。
type LinkServiceInterface interface {
	// IssueToken は指定ユーザー向けの連携トークンを発行する。
	IssueToken(ctx context.Context, userID string) (*model.LinkToken, error)
	// Unlink は指定ユーザーのTelegram連携を解除する。
	Unlink(ctx context.Context, userID string) error
}

// LinkHandler はアカウント連携の内部APIハンドラー。
// ダッシュボードのバックエンドから共有シークレット認証で呼ばれる。
type LinkHandler struct {
	service LinkServiceInterface
	logger  *slog.Logger
}

// NewLinkHandler はLinkHandlerを生成する。
func NewLinkHandler(service LinkServiceInterface, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger,
	}
}

// linkRequest は連携トークン発行・連携解除リクエストのボディ。
type linkRequest struct {
	UserID string `json:"user_id"`
}

// linkTokenResponse は連携トークン発行のAPIレスポンス。
type linkTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken は連携トークンの発行を処理する。
// POST /api/telegram/link
func (h *LinkHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	token, err := h.service.IssueToken(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		h.logger.Error("連携トークンの発行に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, linkTokenResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// Unlink は連携解除を処理する。
// POST /api/telegram/unlink
func (h *LinkHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unlink(r.Context(), userID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		h.logger.Error("連携解除に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// decodeUserID はリクエストボディからuser_idを取り出す。
// 不正なボディや空のuser_idには400を書き込み、falseを返す。
func decodeUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", false
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return "", false
	}
	return req.UserID, true
}
