package link

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iamserge/photolectic/internal/model"
)

// --- フェイク実装 ---

type fakeTokenRepo struct {
	created     *model.LinkToken
	createErr   error
	redeemToken *model.LinkToken // Redeemの戻り値。nilは消費不能を意味する。
	redeemErr   error
	redeemedRaw string
	restoredID  string
	restoreErr  error
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *model.LinkToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = token
	return nil
}

func (f *fakeTokenRepo) Redeem(ctx context.Context, rawToken string, now time.Time) (*model.LinkToken, error) {
	f.redeemedRaw = rawToken
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.redeemToken, nil
}

func (f *fakeTokenRepo) Restore(ctx context.Context, id string) error {
	f.restoredID = id
	return f.restoreErr
}

func (f *fakeTokenRepo) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct {
	usersByID map[string]*model.User
	linked    struct {
		userID           string
		telegramUserID   string
		telegramUsername string
	}
	linkErr   error
	unlinked  string
	unlinkErr error
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return f.usersByID[id], nil
}

func (f *fakeUserRepo) FindByTelegramUserID(ctx context.Context, telegramUserID string) (*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) LinkTelegram(ctx context.Context, userID, telegramUserID, telegramUsername string, linkedAt time.Time) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.linked.userID = userID
	f.linked.telegramUserID = telegramUserID
	f.linked.telegramUsername = telegramUsername
	return nil
}

func (f *fakeUserRepo) UnlinkTelegram(ctx context.Context, userID string) error {
	if f.unlinkErr != nil {
		return f.unlinkErr
	}
	f.unlinked = userID
	return nil
}

func newTestService() (*Service, *fakeTokenRepo, *fakeUserRepo) {
	tokens := &fakeTokenRepo{}
	users := &fakeUserRepo{usersByID: map[string]*model.User{}}
	svc := NewService(tokens, users, ServiceConfig{TokenTTL: 10 * time.Minute})
	return svc, tokens, users
}

// --- テスト ---

// トークン発行が不透明なランダム文字列とTTLを持つことを検証
func TestService_IssueToken_Success(t *testing.T) {
	svc, tokens, users := newTestService()
	users.usersByID["user-1"] = &model.User{ID: "user-1", Name: "Alice"}

	before := time.Now()
	token, err := svc.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if token.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", token.UserID, "user-1")
	}
	if len(token.Token) != 32 {
		t.Errorf("トークン長 = %d, want 32 (16バイトのhex)", len(token.Token))
	}
	if token.Used {
		t.Error("発行直後のトークンは未使用であるべき")
	}

	wantExpiry := before.Add(10 * time.Minute)
	if token.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || token.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v前後", token.ExpiresAt, wantExpiry)
	}

	if tokens.created == nil {
		t.Error("トークンが保存されていない")
	}
}

// 発行ごとに異なるトークンが生成されることを検証
func TestService_IssueToken_Unique(t *testing.T) {
	svc, _, users := newTestService()
	users.usersByID["user-1"] = &model.User{ID: "user-1"}

	t1, err := svc.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	t2, err := svc.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if t1.Token == t2.Token {
		t.Error("連続発行で同一トークンが生成されてはならない")
	}
}

// 存在しないユーザーへの発行がErrUserNotFoundになることを検証
func TestService_IssueToken_UserNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.IssueToken(context.Background(), "no-such-user")
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

// 有効なトークンの消費で連携フィールドが設定されることを検証
func TestService_Redeem_Success(t *testing.T) {
	svc, tokens, users := newTestService()
	tokens.redeemToken = &model.LinkToken{ID: "tok-1", UserID: "user-1", Used: true}
	users.usersByID["user-1"] = &model.User{ID: "user-1", Name: "Alice"}

	user, err := svc.Redeem(context.Background(), "rawtoken", "777000", "alice")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}

	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
	if tokens.redeemedRaw != "rawtoken" {
		t.Errorf("redeemedRaw = %q, want %q", tokens.redeemedRaw, "rawtoken")
	}
	if users.linked.userID != "user-1" || users.linked.telegramUserID != "777000" || users.linked.telegramUsername != "alice" {
		t.Errorf("連携フィールドの設定が不正: %+v", users.linked)
	}
}

// 消費不能なトークンがErrInvalidOrExpiredTokenになることを検証
// 存在しない・使用済み・期限切れはリポジトリ層でnilに正規化されるため区別されない
func TestService_Redeem_InvalidToken(t *testing.T) {
	svc, tokens, users := newTestService()
	tokens.redeemToken = nil

	_, err := svc.Redeem(context.Background(), "deadtoken", "777000", "alice")
	if !errors.Is(err, model.ErrInvalidOrExpiredToken) {
		t.Errorf("error = %v, want ErrInvalidOrExpiredToken", err)
	}
	if users.linked.userID != "" {
		t.Error("無効トークンで連携フィールドが設定されてはならない")
	}
}

// リポジトリエラーが伝播することを検証
func TestService_Redeem_RepositoryError(t *testing.T) {
	svc, tokens, _ := newTestService()
	tokens.redeemErr = errors.New("connection refused")

	_, err := svc.Redeem(context.Background(), "rawtoken", "777000", "alice")
	if err == nil {
		t.Fatal("エラーが返るべき")
	}
	if errors.Is(err, model.ErrInvalidOrExpiredToken) {
		t.Error("DBエラーを無効トークンとして扱ってはならない")
	}
}

// 連携フィールドの更新に失敗した場合、トークンが未使用に戻されることを検証
// 例: 同じTelegramアカウントが別ユーザーに連携済みで一意性制約に衝突した場合、
// トークンを使い潰さず同じコードで再試行できるようにする
func TestService_Redeem_LinkFailure_RestoresToken(t *testing.T) {
	svc, tokens, users := newTestService()
	tokens.redeemToken = &model.LinkToken{ID: "tok-1", UserID: "user-1", Used: true}
	users.linkErr = errors.New("duplicate key value violates unique constraint")

	_, err := svc.Redeem(context.Background(), "rawtoken", "777000", "alice")
	if err == nil {
		t.Fatal("エラーが返るべき")
	}
	if errors.Is(err, model.ErrInvalidOrExpiredToken) {
		t.Error("連携失敗を無効トークンとして扱ってはならない")
	}
	if tokens.restoredID != "tok-1" {
		t.Errorf("restoredID = %q, want %q（連携失敗時はトークンを復元するべき）", tokens.restoredID, "tok-1")
	}
}

// トークン復元自体が失敗しても元の連携エラーが返ることを検証
func TestService_Redeem_RestoreFailure_ReturnsLinkError(t *testing.T) {
	svc, tokens, users := newTestService()
	tokens.redeemToken = &model.LinkToken{ID: "tok-1", UserID: "user-1", Used: true}
	users.linkErr = errors.New("link failed")
	tokens.restoreErr = errors.New("restore failed")

	_, err := svc.Redeem(context.Background(), "rawtoken", "777000", "alice")
	if err == nil {
		t.Fatal("エラーが返るべき")
	}
	if !strings.Contains(err.Error(), "link failed") {
		t.Errorf("元の連携エラーが返るべき: %v", err)
	}
}

// 連携解除がリポジトリに委譲されることを検証
func TestService_Unlink(t *testing.T) {
	svc, _, users := newTestService()

	if err := svc.Unlink(context.Background(), "user-1"); err != nil {
		t.Fatalf("Unlink() error = %v", err)
	}
	if users.unlinked != "user-1" {
		t.Errorf("unlinked = %q, want %q", users.unlinked, "user-1")
	}
}

// 連携解除のエラーが伝播することを検証
func TestService_Unlink_Error(t *testing.T) {
	svc, _, users := newTestService()
	users.unlinkErr = model.ErrUserNotFound

	err := svc.Unlink(context.Background(), "ghost")
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}
