// Package ingest は写真の重複排除付き取り込みパイプラインを提供する。
//
// パイプラインは ハッシュ計算 → 重複チェック → アップロード → 解析 →
// タグ解決 → 永続化 の名前付きステップの直列合成であり、各ステップの
// 失敗モードは構造化されたOutcomeとして明示される。
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamserge/photolectic/internal/blob"
	"github.com/iamserge/photolectic/internal/model"
	"github.com/iamserge/photolectic/internal/repository"
	"github.com/iamserge/photolectic/internal/vision"
)

// OutcomeKind は取り込み結果の種別を表す。
type OutcomeKind string

const (
	// OutcomeCreated は新規写真が作成されたことを示す。
	OutcomeCreated OutcomeKind = "created"
	// OutcomeDuplicate は同一コンテンツがすでに存在し、行が作成されなかったことを示す。
	// これはエラーではなく、成功とも失敗とも区別される正常な結果である。
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeFailed はダウンロード・アップロード・永続化のいずれかの失敗を示す。
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome は取り込みの構造化された結果を表す。
type Outcome struct {
	Kind          OutcomeKind
	Photo         *model.Photo // Kind == OutcomeCreated の場合のみ
	Tags          []string     // 実際に関連付けられたタグ名
	Category      string
	ExistingTitle string // Kind == OutcomeDuplicate の場合、既存写真のタイトル
	Err           error  // Kind == OutcomeFailed の場合の内部エラー（利用者には送らない）
}

// Submission は取り込み対象の写真投稿を表す。
// 呼び出し元（ディスパッチャー）が連携・役割の事前条件を検証済みであること。
type Submission struct {
	PhotographerID string
	Data           []byte
	Caption        string // 任意のタイトル上書き。投稿者の意図は自動推論に優先する。
	Width          int
	Height         int
}

// Uploader はコンテンツストアへのアップロードインターフェース。
// blob.Clientの部分集合として定義する。
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*blob.PutResult, error)
}

// Analyzer は写真解析のインターフェース。vision.Analyzerの部分集合として定義する。
// 2番目の戻り値はフォールバック値が使われたかどうかを示す。
type Analyzer interface {
	Analyze(ctx context.Context, photoURL string) (vision.Analysis, bool)
}

// MetricsCollector はパイプラインが記録するメトリクスのインターフェース。
type MetricsCollector interface {
	RecordIngestOutcome(kind string)
	RecordIngestLatency(d time.Duration)
	RecordVisionFallback()
}

// Pipeline は重複排除付き取り込みパイプライン。
type Pipeline struct {
	photoRepo repository.PhotoRepository
	tagRepo   repository.TagRepository
	uploader  Uploader
	analyzer  Analyzer
	metrics   MetricsCollector
	logger    *slog.Logger
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(
	photoRepo repository.PhotoRepository,
	tagRepo repository.TagRepository,
	uploader Uploader,
	analyzer Analyzer,
	metrics MetricsCollector,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		photoRepo: photoRepo,
		tagRepo:   tagRepo,
		uploader:  uploader,
		analyzer:  analyzer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Ingest は投稿された写真を審査待ち状態の写真レコードに変換する。
// 同一バイナリは何度・どの経路から投稿されてもちょうど1行に収束する。
// 解析失敗はフォールバック値で吸収され、取り込みを中断しない。
func (p *Pipeline) Ingest(ctx context.Context, sub Submission) Outcome {
	start := time.Now()
	outcome := p.run(ctx, sub)

	p.metrics.RecordIngestOutcome(string(outcome.Kind))
	p.metrics.RecordIngestLatency(time.Since(start))

	switch outcome.Kind {
	case OutcomeCreated:
		p.logger.Info("写真を取り込みました",
			slog.String("photo_id", outcome.Photo.ID),
			slog.String("photographer_id", sub.PhotographerID),
			slog.Int("tag_count", len(outcome.Tags)),
		)
	case OutcomeDuplicate:
		p.logger.Info("重複コンテンツのため取り込みをスキップしました",
			slog.String("photographer_id", sub.PhotographerID),
			slog.String("existing_title", outcome.ExistingTitle),
		)
	case OutcomeFailed:
		p.logger.Error("写真の取り込みに失敗しました",
			slog.String("photographer_id", sub.PhotographerID),
			slog.String("error", outcome.Err.Error()),
		)
	}

	return outcome
}

func (p *Pipeline) run(ctx context.Context, sub Submission) Outcome {
	// 1. コンテンツハッシュの計算
	sum := sha256.Sum256(sub.Data)
	fileHash := hex.EncodeToString(sum[:])

	// 2. 重複チェック（事前の最適化。最終的な守りはfile_hash一意性制約）
	existing, err := p.photoRepo.FindByFileHash(ctx, fileHash)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Err: fmt.Errorf("重複チェックに失敗: %w", err)}
	}
	if existing != nil {
		return Outcome{Kind: OutcomeDuplicate, ExistingTitle: existing.Title}
	}

	// 3. コンテンツストアへのアップロード（ハッシュで名前空間化したキー）
	filename := fmt.Sprintf("telegram_%d.jpg", time.Now().UnixMilli())
	key := fmt.Sprintf("photos/%s/%s", fileHash, filename)
	uploaded, err := p.uploader.Put(ctx, key, sub.Data, "image/jpeg")
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Err: fmt.Errorf("コンテンツストアへのアップロードに失敗: %w", err)}
	}

	// 4. 写真解析（失敗はフォールバック値で吸収される）
	analysis, usedFallback := p.analyzer.Analyze(ctx, uploaded.URL)
	if usedFallback {
		p.metrics.RecordVisionFallback()
	}

	// 5. キャプションによるタイトル上書き（投稿者の意図 > 自動推論）
	if sub.Caption != "" {
		analysis.Title = sub.Caption
	}

	// 6. タグ解決
	tagIDs, tagNames, err := p.resolveTags(ctx, analysis.Tags)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Err: fmt.Errorf("タグ解決に失敗: %w", err)}
	}

	// 7. 写真レコードの作成（常にPENDING_REVIEWで開始）
	now := time.Now()
	photo := &model.Photo{
		ID:             uuid.New().String(),
		PhotographerID: sub.PhotographerID,
		Title:          analysis.Title,
		Description:    analysis.Description,
		FileURL:        uploaded.URL,
		ThumbnailURL:   uploaded.URL,
		StorageKey:     uploaded.Pathname,
		Status:         model.StatusPendingReview,
		FileSize:       int64(len(sub.Data)),
		Width:          sub.Width,
		Height:         sub.Height,
		MimeType:       "image/jpeg",
		FileHash:       fileHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.photoRepo.CreateWithTags(ctx, photo, tagIDs); err != nil {
		if err == repository.ErrDuplicateFileHash {
			// 事前チェックをすり抜けた並行投稿。一意性制約が守ってくれた。
			title := analysis.Title
			if created, findErr := p.photoRepo.FindByFileHash(ctx, fileHash); findErr == nil && created != nil {
				title = created.Title
			}
			return Outcome{Kind: OutcomeDuplicate, ExistingTitle: title}
		}
		return Outcome{Kind: OutcomeFailed, Err: fmt.Errorf("写真レコードの作成に失敗: %w", err)}
	}

	return Outcome{
		Kind:     OutcomeCreated,
		Photo:    photo,
		Tags:     tagNames,
		Category: analysis.Category,
	}
}

// resolveTags は提案されたタグ文字列をタグ行に解決し、IDと名前を返す。
// slug化して空になるタグはスキップする。同一slugの並行作成は
// リポジトリ層のget-or-createにより1行に収束する。
func (p *Pipeline) resolveTags(ctx context.Context, names []string) (ids []string, resolved []string, err error) {
	for _, name := range names {
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		tag, err := p.tagRepo.GetOrCreate(ctx, name, slug)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, tag.ID)
		resolved = append(resolved, tag.Name)
	}
	return ids, resolved, nil
}

// Slugify はタグ名を正規化したslugに変換する。
// 小文字化し、空白の連続を1つのハイフンに置換し、[a-z0-9-]以外の文字を除去する。
// 同一入力に対して常に同一出力を返す。全記号の入力は空文字列になる。
func Slugify(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(lower))
	inSpace := false
	for _, r := range lower {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
