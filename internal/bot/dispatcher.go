package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/iamserge/photolectic/internal/ingest"
	"github.com/iamserge/photolectic/internal/model"
	"github.com/iamserge/photolectic/internal/repository"
	"github.com/iamserge/photolectic/internal/security"
	"github.com/iamserge/photolectic/internal/telegram"
)

// MessageSender はチャットへの返信送信インターフェース。
// telegram.Clientの部分集合として定義する。送信失敗は送信側で吸収される。
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string)
}

// FileFetcher は添付写真のバイナリ取得インターフェース。
// telegram.Clientの部分集合として定義する。失敗時はnilを返す。
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) []byte
}

// LinkService はアカウント連携操作のインターフェース。
type LinkService interface {
	// Redeem はトークンを消費してアカウントを連携し、連携後のユーザーを返す。
	Redeem(ctx context.Context, rawToken, telegramUserID, telegramUsername string) (*model.User, error)
	// Unlink はTelegram連携を解除する。
	Unlink(ctx context.Context, userID string) error
}

// Ingester は写真取り込みパイプラインのインターフェース。
type Ingester interface {
	Ingest(ctx context.Context, sub ingest.Submission) ingest.Outcome
}

// Dispatcher は受信更新をコマンドに解決し、対応する処理を実行する。
// 全ての返信はHTML形式で、利用者が制御できる文字列は埋め込み前にサニタイズされる。
type Dispatcher struct {
	users        repository.UserRepository
	photos       repository.PhotoRepository
	linkService  LinkService
	ingester     Ingester
	sender       MessageSender
	fetcher      FileFetcher
	sanitizer    security.TextSanitizerService
	dashboardURL string
	logger       *slog.Logger
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
func NewDispatcher(
	users repository.UserRepository,
	photos repository.PhotoRepository,
	linkService LinkService,
	ingester Ingester,
	sender MessageSender,
	fetcher FileFetcher,
	sanitizer security.TextSanitizerService,
	dashboardURL string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		users:        users,
		photos:       photos,
		linkService:  linkService,
		ingester:     ingester,
		sender:       sender,
		fetcher:      fetcher,
		sanitizer:    sanitizer,
		dashboardURL: dashboardURL,
		logger:       logger,
	}
}

// Dispatch は受信更新を処理する。
// メッセージを含まない更新と認識されないメッセージは黙って無視される。
// 内部エラーはログに記録されるだけで、呼び出し元（Webhookハンドラー）には
// 伝播しない。Webhookの応答はディスパッチ結果に依存しない。
func (d *Dispatcher) Dispatch(ctx context.Context, update *telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	telegramUserID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	user, err := d.users.FindByTelegramUserID(ctx, telegramUserID)
	if err != nil {
		d.logger.Error("ユーザーの検索に失敗しました",
			slog.String("telegram_user_id", telegramUserID),
			slog.String("error", err.Error()),
		)
		return
	}

	cmd := ParseMessage(msg)

	switch cmd.Kind {
	case CmdStart:
		d.handleStart(ctx, chatID, user)
	case CmdLink:
		d.handleLink(ctx, chatID, cmd.LinkToken, telegramUserID, msg.From.Username)
	case CmdStats:
		if d.requireLinked(ctx, chatID, user) {
			d.handleStats(ctx, chatID, user)
		}
	case CmdPhotos:
		if d.requireLinked(ctx, chatID, user) {
			d.handlePhotos(ctx, chatID, user)
		}
	case CmdHelp:
		if d.requireLinked(ctx, chatID, user) {
			d.sender.SendMessage(ctx, chatID, msgHelp())
		}
	case CmdUnlink:
		if d.requireLinked(ctx, chatID, user) {
			d.handleUnlink(ctx, chatID, user)
		}
	case CmdPhotoUpload:
		d.handlePhotoUpload(ctx, chatID, user, cmd)
	case CmdUnknown:
		// 認識されないメッセージには反応しない
	}
}

// requireLinked は連携済みユーザーを要求するコマンドの事前条件チェック。
// 未連携の場合は案内メッセージを送り、falseを返す。
func (d *Dispatcher) requireLinked(ctx context.Context, chatID int64, user *model.User) bool {
	if user == nil {
		d.sender.SendMessage(ctx, chatID, msgNotLinked(d.dashboardURL))
		return false
	}
	return true
}

func (d *Dispatcher) handleStart(ctx context.Context, chatID int64, user *model.User) {
	if user != nil {
		d.sender.SendMessage(ctx, chatID, msgWelcomeBack(d.displayName(user)))
		return
	}
	d.sender.SendMessage(ctx, chatID, msgWelcomeNew(d.dashboardURL))
}

func (d *Dispatcher) handleLink(ctx context.Context, chatID int64, rawToken, telegramUserID, telegramUsername string) {
	user, err := d.linkService.Redeem(ctx, rawToken, telegramUserID, telegramUsername)
	if err != nil {
		if errors.Is(err, model.ErrInvalidOrExpiredToken) {
			d.sender.SendMessage(ctx, chatID, msgInvalidToken())
			return
		}
		d.logger.Error("アカウント連携に失敗しました",
			slog.String("telegram_user_id", telegramUserID),
			slog.String("error", err.Error()),
		)
		d.sender.SendMessage(ctx, chatID, msgLinkFailed())
		return
	}

	d.logger.Info("アカウントを連携しました",
		slog.String("user_id", user.ID),
		slog.String("telegram_user_id", telegramUserID),
	)
	d.sender.SendMessage(ctx, chatID, msgLinked(d.displayName(user)))
}

func (d *Dispatcher) handleStats(ctx context.Context, chatID int64, user *model.User) {
	counts, err := d.photos.CountByPhotographer(ctx, user.ID)
	if err != nil {
		d.logger.Error("統計情報の集計に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	d.sender.SendMessage(ctx, chatID, msgStats(counts))
}

func (d *Dispatcher) handlePhotos(ctx context.Context, chatID int64, user *model.User) {
	photos, err := d.photos.ListRecentByPhotographer(ctx, user.ID, 5)
	if err != nil {
		d.logger.Error("写真一覧の取得に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(photos) == 0 {
		d.sender.SendMessage(ctx, chatID, msgNoPhotos())
		return
	}
	d.sender.SendMessage(ctx, chatID, msgPhotoList(photos, d.dashboardURL, d.sanitizer.Sanitize))
}

func (d *Dispatcher) handleUnlink(ctx context.Context, chatID int64, user *model.User) {
	if err := d.linkService.Unlink(ctx, user.ID); err != nil {
		d.logger.Error("連携解除に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	d.sender.SendMessage(ctx, chatID, msgUnlinked())
}

func (d *Dispatcher) handlePhotoUpload(ctx context.Context, chatID int64, user *model.User, cmd Command) {
	if user == nil {
		d.sender.SendMessage(ctx, chatID, msgNotLinked(d.dashboardURL))
		return
	}
	if !user.IsPhotographer() {
		d.sender.SendMessage(ctx, chatID, msgNotPhotographer(d.dashboardURL))
		return
	}

	d.sender.SendMessage(ctx, chatID, msgUploading())

	data := d.fetcher.FetchFile(ctx, cmd.Photo.FileID)
	if data == nil {
		d.sender.SendMessage(ctx, chatID, msgDownloadFailed())
		return
	}

	outcome := d.ingester.Ingest(ctx, ingest.Submission{
		PhotographerID: user.ID,
		Data:           data,
		Caption:        cmd.Caption,
		Width:          cmd.Photo.Width,
		Height:         cmd.Photo.Height,
	})

	switch outcome.Kind {
	case ingest.OutcomeCreated:
		d.sender.SendMessage(ctx, chatID, msgUploaded(
			d.sanitizer.Sanitize(outcome.Photo.Title),
			d.sanitizer.Sanitize(outcome.Photo.Description),
			outcome.Tags,
			outcome.Category,
		))
	case ingest.OutcomeDuplicate:
		d.sender.SendMessage(ctx, chatID, msgDuplicate(d.sanitizer.Sanitize(outcome.ExistingTitle)))
	case ingest.OutcomeFailed:
		d.sender.SendMessage(ctx, chatID, msgUploadFailed())
	}
}

// displayName はユーザーの表示名を返す。名前が空の場合は既定値を使う。
func (d *Dispatcher) displayName(user *model.User) string {
	if user.Name == "" {
		return "Photographer"
	}
	return d.sanitizer.Sanitize(user.Name)
}
