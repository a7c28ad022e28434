// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iamserge/photolectic/internal/telegram"
)

// webhookSecretHeader はTelegramがWebhook呼び出しに付けるシークレットヘッダー名。
const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateDispatcher は受信更新のディスパッチインターフェース。
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update *telegram.Update)
}

// SenderAllower は送信者ごとのレート制限インターフェース。
type SenderAllower interface {
	Allow(senderID string) bool
}

// WebhookRejectedRecorder はWebhook拒否メトリクスの記録インターフェース。
type WebhookRejectedRecorder interface {
	RecordWebhookRejected(reason string)
}

// WebhookHandler はTelegram WebhookのHTTPハンドラー。
type WebhookHandler struct {
	dispatcher UpdateDispatcher
	limiter    SenderAllower
	metrics    WebhookRejectedRecorder
	secret     string // 空の場合はヘッダー検証をスキップする
	logger     *slog.Logger
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(
	dispatcher UpdateDispatcher,
	limiter SenderAllower,
	metrics WebhookRejectedRecorder,
	secret string,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		limiter:    limiter,
		metrics:    metrics,
		secret:     secret,
		logger:     logger,
	}
}

// HandleUpdate はTelegramからのWebhook呼び出しを処理する。
// POST /api/telegram/webhook
//
// シークレットヘッダーが一致しない場合は401、ボディが不正なJSONの場合は400。
// パースに成功した更新は、ディスパッチ結果にかかわらず200で応答する。
// エラーを返すとTelegramが同一更新を再配送してしまうため、処理の失敗は
// ログとメトリクスにのみ記録する。
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && r.Header.Get(webhookSecretHeader) != h.secret {
		h.metrics.RecordWebhookRejected("bad_secret")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.metrics.RecordWebhookRejected("malformed_body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if update.Message != nil && update.Message.From != nil {
		senderID := strconv.FormatInt(update.Message.From.ID, 10)
		if !h.limiter.Allow(senderID) {
			// 制限超過のメッセージは破棄するが、応答は成功のまま。
			// 429を返すとTelegramが再配送し続けて事態が悪化する。
			h.metrics.RecordWebhookRejected("rate_limited")
			h.logger.Warn("レート制限により更新をスキップしました",
				slog.String("telegram_user_id", senderID),
				slog.Int64("update_id", update.UpdateID),
			)
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}

		h.dispatcher.Dispatch(r.Context(), &update)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
