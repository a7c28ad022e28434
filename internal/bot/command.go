// Package bot は受信メッセージの解釈とコマンドディスパッチを提供する。
//
// メッセージは単一のパースステップでコマンド値に変換され、
// ディスパッチャーは文字列照合を繰り返さずにコマンド値のみで分岐する。
package bot

import (
	"strings"

	"github.com/iamserge/photolectic/internal/telegram"
)

// CommandKind はパース済みコマンドの種別を表す。コマンド集合は閉じている。
type CommandKind string

const (
	// CmdStart は /start コマンド。
	CmdStart CommandKind = "start"
	// CmdLink は /link <token> コマンド。
	CmdLink CommandKind = "link"
	// CmdStats は /stats コマンド。
	CmdStats CommandKind = "stats"
	// CmdPhotos は /photos コマンド。
	CmdPhotos CommandKind = "photos"
	// CmdHelp は /help コマンド。
	CmdHelp CommandKind = "help"
	// CmdUnlink は /unlink コマンド。
	CmdUnlink CommandKind = "unlink"
	// CmdPhotoUpload は写真添付メッセージ。
	CmdPhotoUpload CommandKind = "photo_upload"
	// CmdUnknown は認識されないメッセージ。ディスパッチャーは何もしない。
	CmdUnknown CommandKind = "unknown"
)

// Command はパース済みの受信コマンドを表す。
// KindがCmdLinkの場合のみLinkTokenが、CmdPhotoUploadの場合のみPhotoが有効。
type Command struct {
	Kind      CommandKind
	LinkToken string
	Photo     *telegram.PhotoSize // 最高解像度バリアント
	Caption   string
}

// ParseMessage は受信メッセージをコマンド値に変換する。
// 写真添付が最優先で、次にテキストコマンドを照合する。
// どれにも一致しないメッセージはCmdUnknownになる。
func ParseMessage(msg *telegram.Message) Command {
	if len(msg.Photo) > 0 {
		return Command{
			Kind:    CmdPhotoUpload,
			Photo:   telegram.BestPhoto(msg.Photo),
			Caption: msg.Caption,
		}
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case "/start":
		return Command{Kind: CmdStart}
	case "/stats":
		return Command{Kind: CmdStats}
	case "/photos":
		return Command{Kind: CmdPhotos}
	case "/help":
		return Command{Kind: CmdHelp}
	case "/unlink":
		return Command{Kind: CmdUnlink}
	}

	if token, ok := strings.CutPrefix(text, "/link "); ok {
		return Command{Kind: CmdLink, LinkToken: strings.TrimSpace(token)}
	}

	return Command{Kind: CmdUnknown}
}
