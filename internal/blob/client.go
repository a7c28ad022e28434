// Package blob はオブジェクトストレージへの写真バイナリのアップロードを提供する。
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// PutResult はアップロード結果を表す。
type PutResult struct {
	URL      string `json:"url"`      // 公開アクセス可能なコンテンツURL
	Pathname string `json:"pathname"` // ストレージ上のパス
}

// Client はBlobストレージのHTTPクライアント。
// キーはコンテンツハッシュで名前空間化される（photos/<sha256>/<filename>）ため、
// 同一コンテンツの再アップロードはこの呼び出しの前に検出できる。
// リトライはここでは行わない。必要ならば呼び出し元の責務とする。
type Client struct {
	httpClient *http.Client
	endpoint   string // テスト用にエンドポイントを差し替え可能
	token      string
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, endpoint, token string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		logger:     logger,
	}
}

// Put はバイナリを公開アクセスでアップロードし、公開URLとパスを返す。
// 失敗はエラーとして呼び出し元に伝播する。
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (*PutResult, error) {
	if c.token == "" {
		return nil, fmt.Errorf("blobストレージのトークンが未設定です")
	}
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return nil, fmt.Errorf("アップロードキーが空です")
	}

	reqURL := c.endpoint + "/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("アップロードリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Access", "public")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("blobストレージへのアップロードに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("blobストレージへのアップロードに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("アップロードレスポンスの読み取りに失敗しました: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("blobストレージがエラーステータスを返しました",
			slog.String("key", key),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("blobストレージがステータス %d を返しました", resp.StatusCode)
	}

	result := &PutResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("アップロードレスポンスのパースに失敗しました: %w", err)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("アップロードレスポンスにURLが含まれていません")
	}
	if result.Pathname == "" {
		result.Pathname = key
	}

	return result, nil
}
