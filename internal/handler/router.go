package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iamserge/photolectic/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	HealthChecker HealthChecker

	// ミドルウェア依存
	StatusRecorder middleware.StatusRecorder
	InternalSecret string

	// Webhook
	Dispatcher     UpdateDispatcher
	SenderLimiter  SenderAllower
	WebhookMetrics WebhookRejectedRecorder
	WebhookSecret  string

	// 連携内部API
	LinkService LinkServiceInterface

	Logger *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → MetricsMiddleware
//
// 内部API（/api/telegram/link, /api/telegram/unlink）には共有シークレット認証を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))

	webhookHandler := NewWebhookHandler(
		deps.Dispatcher, deps.SenderLimiter, deps.WebhookMetrics,
		deps.WebhookSecret, deps.Logger,
	)
	linkHandler := NewLinkHandler(deps.LinkService, deps.Logger)

	// ヘルスチェック（認証不要）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/telegram", func(r chi.Router) {
		// Webhookはシークレットヘッダーをハンドラー内で検証する
		r.Post("/webhook", webhookHandler.HandleUpdate)

		// ダッシュボードバックエンド専用の内部API
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewInternalAuthMiddleware(deps.InternalSecret))
			r.Post("/link", linkHandler.IssueToken)
			r.Post("/unlink", linkHandler.Unlink)
		})
	})

	return r
}
