package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/iamserge/photolectic/internal/model"
)

// LinkTokenRepositoryに対するフェイク実装
type fakeTokenRepo struct {
	deleted   int64
	deleteErr error
	called    bool
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *model.LinkToken) error { return nil }

func (f *fakeTokenRepo) Redeem(ctx context.Context, rawToken string, now time.Time) (*model.LinkToken, error) {
	return nil, nil
}

func (f *fakeTokenRepo) Restore(ctx context.Context, id string) error { return nil }

func (f *fakeTokenRepo) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	f.called = true
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleted, nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&fakeTokenRepo{}, newTestLogger(&buf))

	if job == nil {
		t.Fatal("NewCleanupJob は nil を返してはならない")
	}
}

// Runが削除を委譲し件数をログに記録することを検証
func TestCleanupJob_Run_DeletesDeadTokens(t *testing.T) {
	var buf bytes.Buffer
	repo := &fakeTokenRepo{deleted: 7}
	job := NewCleanupJob(repo, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !repo.called {
		t.Error("DeleteDeadが呼ばれるべき")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"deleted_count":7`)) {
		t.Errorf("削除件数がログに含まれるべき: %s", buf.String())
	}
}

// 削除対象がない場合でもエラーにならないことを検証（冪等性）
func TestCleanupJob_Run_NoDeadTokens_Succeeds(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&fakeTokenRepo{deleted: 0}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

// リポジトリエラーが伝播することを検証
func TestCleanupJob_Run_RepositoryError(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&fakeTokenRepo{deleteErr: errors.New("connection refused")}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("リポジトリエラーが伝播するべき")
	}
}

// Startがコンテキストのキャンセルで終了することを検証
func TestCleanupJob_Start_StopsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer
	repo := &fakeTokenRepo{}
	job := NewCleanupJob(repo, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル後にStartが終了しない")
	}

	if !repo.called {
		t.Error("起動直後に1回実行されるべき")
	}
}
