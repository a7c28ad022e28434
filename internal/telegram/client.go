package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client はTelegram Bot APIのクライアント。
// メッセージ送信とファイル取得の2つの責務のみを持ち、呼び出し間で状態を保持しない。
type Client struct {
	httpClient  *http.Client
	baseURL     string // テスト用にエンドポイントを差し替え可能
	token       string
	maxFileSize int64
	logger      *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// tokenが空の場合、各呼び出しはクラッシュせず呼び出し単位で失敗する。
func NewClient(httpClient *http.Client, baseURL, token string, maxFileSize int64, logger *slog.Logger) *Client {
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// sendMessageRequest はsendMessageエンドポイントのリクエストボディ。
type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// okResponse はTelegram APIの共通レスポンスエンベロープ。
type okResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// getFileResponse はgetFileエンドポイントのレスポンス。
type getFileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FileID   string `json:"file_id"`
		FilePath string `json:"file_path,omitempty"`
		FileSize int64  `json:"file_size,omitempty"`
	} `json:"result"`
}

// SendMessage はチャットにHTML形式のメッセージを送信する。
// 送信はベストエフォートであり、失敗はログに記録して握りつぶす。
// 通知の成否が業務処理の正しさに影響してはならない。
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) {
	if c.token == "" {
		c.logger.Warn("Telegramボットトークンが未設定のためメッセージを送信しません",
			slog.Int64("chat_id", chatID),
		)
		return
	}

	reqBody := sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		c.logger.Error("sendMessageリクエストの構築に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(b))
	if err != nil {
		c.logger.Error("sendMessageリクエストの作成に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Telegramメッセージの送信に失敗しました",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var out okResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		c.logger.Error("Telegram APIがsendMessageエラーを返しました",
			slog.Int64("chat_id", chatID),
			slog.Int("http_status", resp.StatusCode),
			slog.String("description", out.Description),
		)
	}
}

// FetchFile はfile_idから写真バイナリを取得する。
// getFileでダウンロードパスを解決し、続けてバイナリをGETする2段階プロトコル。
// あらゆる失敗でnilを返す（エラーは返さない）。呼び出し元は
// nilを見て利用者向けのエラーメッセージに分岐する。
func (c *Client) FetchFile(ctx context.Context, fileID string) []byte {
	if c.token == "" {
		c.logger.Warn("Telegramボットトークンが未設定のためファイルを取得できません")
		return nil
	}
	if strings.TrimSpace(fileID) == "" {
		return nil
	}

	// 1. file_idからダウンロードパスを解決
	metaURL := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.baseURL, c.token, url.QueryEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		c.logger.Error("getFileリクエストの作成に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("getFileの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Telegram APIがgetFileエラーを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil
	}

	var meta getFileResponse
	if err := json.Unmarshal(raw, &meta); err != nil {
		c.logger.Error("getFileレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !meta.OK || strings.TrimSpace(meta.Result.FilePath) == "" {
		c.logger.Error("getFileレスポンスにfile_pathが含まれていません")
		return nil
	}

	// 2. バイナリをダウンロード
	fileURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(meta.Result.FilePath, "/"))
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		c.logger.Error("ファイルダウンロードリクエストの作成に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}
	resp, err = c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ファイルのダウンロードに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ファイルダウンロードがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil
	}

	// サイズ上限を超えるダウンロードは失敗として扱う
	limited := io.LimitReader(resp.Body, c.maxFileSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		c.logger.Error("ファイルボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if int64(len(data)) > c.maxFileSize {
		c.logger.Error("ファイルサイズが上限を超えています",
			slog.Int64("max_bytes", c.maxFileSize),
		)
		return nil
	}

	return data
}
