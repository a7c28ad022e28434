// Package vision はマルチモーダルモデルによる写真の自動タグ付けを提供する。
package vision

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

// Analysis は写真解析の構造化結果を表す。
type Analysis struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}

// FallbackAnalysis は解析失敗時に使用する固定のフォールバック値を返す。
// 解析は助言的な機能であり、その失敗は取り込みを中断させてはならない。
func FallbackAnalysis() Analysis {
	return Analysis{
		Title:       "Untitled Photo",
		Description: "Uploaded via Telegram",
		Tags:        []string{"photography"},
		Category:    "other",
	}
}

// prompt はモデルへの固定指示。厳密なJSONのみの応答を要求する。
const prompt = `Analyze this photo for a stock photography marketplace. Provide:
1. A compelling title (2-5 words)
2. A brief description (1-2 sentences)
3. 5-10 search tags (lowercase)
4. Category from: landscape, portrait, street, architecture, food, wildlife, abstract, travel, urban, nature, fashion, sports, events, product, other

Respond ONLY with JSON: {"title": "...", "description": "...", "tags": [...], "category": "..."}`

// Analyzer はマルチモーダル補完エンドポイントのクライアント。
type Analyzer struct {
	httpClient *http.Client
	baseURL    string // テスト用にエンドポイントを差し替え可能
	apiKey     string
	model      string
	logger     *slog.Logger
}

// NewAnalyzer はAnalyzerの新しいインスタンスを生成する。
func NewAnalyzer(httpClient *http.Client, baseURL, apiKey, model string, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

// chat completions のリクエスト/レスポンス（必要なフィールドのみ）。
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Analyze は画像URLをモデルに渡し、構造化された解析結果を返す。
// 2番目の戻り値は、呼び出し失敗やパース失敗によりフォールバック値を
// 返したかどうかを示す。エラーは決して返さない。
func (a *Analyzer) Analyze(ctx context.Context, photoURL string) (Analysis, bool) {
	analysis, err := a.call(ctx, photoURL)
	if err != nil {
		a.logger.Error("写真解析に失敗したためフォールバック値を使用します",
			slog.String("error", err.Error()),
		)
		return FallbackAnalysis(), true
	}
	return analysis, false
}

// call はモデル呼び出しとレスポンス抽出を行う。
func (a *Analyzer) call(ctx context.Context, photoURL string) (Analysis, error) {
	if a.apiKey == "" {
		return Analysis{}, fmt.Errorf("vision APIキーが未設定です")
	}

	body := chatCompletionRequest{
		Model: a.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: photoURL}},
				},
			},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return Analysis{}, fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return Analysis{}, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("visionエンドポイントの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Analysis{}, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Analysis{}, fmt.Errorf("レスポンスのパースに失敗しました: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return Analysis{}, fmt.Errorf("vision http %d: %s", resp.StatusCode, out.Error.Message)
		}
		return Analysis{}, fmt.Errorf("vision http %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return Analysis{}, fmt.Errorf("レスポンスにchoicesが含まれていません")
	}

	return extractAnalysis(out.Choices[0].Message.Content)
}

// extractAnalysis はモデル応答テキストから最初のJSONオブジェクトを抽出してパースする。
// コードフェンスや前置きテキストに包まれた応答も許容する。
func extractAnalysis(content string) (Analysis, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Analysis{}, fmt.Errorf("応答にJSONオブジェクトが含まれていません")
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(content[start:end+1]), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("応答JSONのパースに失敗しました: %w", err)
	}
	if analysis.Title == "" {
		return Analysis{}, fmt.Errorf("応答JSONにtitleが含まれていません")
	}
	return analysis, nil
}
