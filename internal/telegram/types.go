// Package telegram はTelegram Bot APIのクライアントとWebhook更新の型を提供する。
package telegram

// Update はWebhookで受信する更新エンベロープを表す。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message は受信メッセージを表す。
// テキストコマンドか写真添付のいずれかとして処理される。
type Message struct {
	MessageID int64       `json:"message_id"`
	Date      int64       `json:"date,omitempty"`
	Chat      *Chat       `json:"chat,omitempty"`
	From      *User       `json:"from,omitempty"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

// Chat はチャットを表す。
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

// User はTelegram上のユーザーを表す。
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// PhotoSize は写真の1解像度バリアントを表す。
// Telegramは同一写真を解像度昇順の配列で送る。
type PhotoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// BestPhoto は最高解像度のバリアントを返す。配列が空の場合はnil。
// Telegram APIの並び順では末尾要素が最大サイズ。
func BestPhoto(sizes []PhotoSize) *PhotoSize {
	if len(sizes) == 0 {
		return nil
	}
	return &sizes[len(sizes)-1]
}
