// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iamserge/photolectic/internal/blob"
	"github.com/iamserge/photolectic/internal/bot"
	"github.com/iamserge/photolectic/internal/config"
	"github.com/iamserge/photolectic/internal/database"
	"github.com/iamserge/photolectic/internal/handler"
	"github.com/iamserge/photolectic/internal/ingest"
	"github.com/iamserge/photolectic/internal/link"
	"github.com/iamserge/photolectic/internal/logger"
	"github.com/iamserge/photolectic/internal/metrics"
	"github.com/iamserge/photolectic/internal/middleware"
	"github.com/iamserge/photolectic/internal/repository"
	"github.com/iamserge/photolectic/internal/security"
	"github.com/iamserge/photolectic/internal/telegram"
	"github.com/iamserge/photolectic/internal/vision"
	"github.com/iamserge/photolectic/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresLinkTokenRepo(db)
	photoRepo := repository.NewPostgresPhotoRepo(db)
	tagRepo := repository.NewPostgresTagRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 外部サービスクライアントの初期化
	// クライアントごとに独立したhttp.Clientを持たせ、タイムアウトを分離する
	telegramClient := telegram.NewClient(
		&http.Client{Timeout: cfg.TelegramTimeout},
		cfg.TelegramAPIBaseURL, cfg.TelegramBotToken,
		cfg.TelegramFileMaxSize, slog.Default(),
	)
	blobClient := blob.NewClient(
		&http.Client{Timeout: cfg.BlobTimeout},
		cfg.BlobEndpoint, cfg.BlobToken, slog.Default(),
	)
	analyzer := vision.NewAnalyzer(
		&http.Client{Timeout: cfg.VisionTimeout},
		cfg.VisionBaseURL, cfg.VisionAPIKey, cfg.VisionModel, slog.Default(),
	)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()
	linkService := link.NewService(tokenRepo, userRepo, link.ServiceConfig{
		TokenTTL: cfg.LinkTokenTTL,
	})
	pipeline := ingest.NewPipeline(
		photoRepo, tagRepo, blobClient, analyzer, collector, slog.Default(),
	)
	dispatcher := bot.NewDispatcher(
		userRepo, photoRepo, linkService, pipeline,
		telegramClient, telegramClient, sanitizer,
		cfg.DashboardURL, slog.Default(),
	)

	// 6. ルーターの構築
	senderLimiter := middleware.NewSenderLimiter(
		middleware.DefaultSenderLimiterConfig(cfg.WebhookRatePerMin),
	)
	defer senderLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:  db,
		StatusRecorder: collector,
		InternalSecret: cfg.InternalAPISecret,

		Dispatcher:     dispatcher,
		SenderLimiter:  senderLimiter,
		WebhookMetrics: collector,
		WebhookSecret:  cfg.TelegramWebhookSecret,

		LinkService: linkService,

		Logger: slog.Default(),
	}
	router := handler.NewRouter(deps)

	// 7. クリーンアップジョブをバックグラウンドで起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupJob := cleanup.NewCleanupJob(tokenRepo, slog.Default())
	go cleanupJob.Start(ctx)

	// 8. メトリクスサーバーとAPIサーバーの起動
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.Handle("/", router)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // 写真取り込みは同期処理のため長め
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
