package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iamserge/photolectic/internal/model"
)

type fakeLinkService struct {
	token      *model.LinkToken
	issueErr   error
	issuedFor  string
	unlinkErr  error
	unlinkedID string
}

func (f *fakeLinkService) IssueToken(ctx context.Context, userID string) (*model.LinkToken, error) {
	f.issuedFor = userID
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return f.token, nil
}

func (f *fakeLinkService) Unlink(ctx context.Context, userID string) error {
	f.unlinkedID = userID
	return f.unlinkErr
}

// トークン発行の成功レスポンスを検証
func TestLinkHandler_IssueToken_Success(t *testing.T) {
	expires := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)
	svc := &fakeLinkService{
		token: &model.LinkToken{Token: "abc123", ExpiresAt: expires},
	}
	h := NewLinkHandler(svc, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/link", strings.NewReader(`{"user_id":"user-1"}`))
	w := httptest.NewRecorder()

	h.IssueToken(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if svc.issuedFor != "user-1" {
		t.Errorf("issuedFor = %q, want %q", svc.issuedFor, "user-1")
	}

	var body linkTokenResponse
	json.NewDecoder(w.Body).Decode(&body)
	if body.Token != "abc123" {
		t.Errorf("token = %q, want abc123", body.Token)
	}
	if !body.ExpiresAt.Equal(expires) {
		t.Errorf("expires_at = %v, want %v", body.ExpiresAt, expires)
	}
}

// 存在しないユーザーへの発行で404が返ることを検証
func TestLinkHandler_IssueToken_UserNotFound(t *testing.T) {
	svc := &fakeLinkService{issueErr: model.ErrUserNotFound}
	h := NewLinkHandler(svc, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/link", strings.NewReader(`{"user_id":"ghost"}`))
	w := httptest.NewRecorder()

	h.IssueToken(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// 内部エラーで500が返ることを検証
func TestLinkHandler_IssueToken_InternalError(t *testing.T) {
	svc := &fakeLinkService{issueErr: errors.New("db down")}
	h := NewLinkHandler(svc, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/link", strings.NewReader(`{"user_id":"user-1"}`))
	w := httptest.NewRecorder()

	h.IssueToken(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// 不正なボディで400が返ることを検証
func TestLinkHandler_IssueToken_InvalidBody(t *testing.T) {
	h := NewLinkHandler(&fakeLinkService{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/link", strings.NewReader("{broken"))
	w := httptest.NewRecorder()

	h.IssueToken(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// user_idが空の場合に400が返ることを検証
func TestLinkHandler_IssueToken_EmptyUserID(t *testing.T) {
	h := NewLinkHandler(&fakeLinkService{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/link", strings.NewReader(`{"user_id":""}`))
	w := httptest.NewRecorder()

	h.IssueToken(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// 連携解除の成功レスポンスを検証
func TestLinkHandler_Unlink_Success(t *testing.T) {
	svc := &fakeLinkService{}
	h := NewLinkHandler(svc, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/unlink", strings.NewReader(`{"user_id":"user-1"}`))
	w := httptest.NewRecorder()

	h.Unlink(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.unlinkedID != "user-1" {
		t.Errorf("unlinkedID = %q, want %q", svc.unlinkedID, "user-1")
	}
}

// 存在しないユーザーの連携解除で404が返ることを検証
func TestLinkHandler_Unlink_UserNotFound(t *testing.T) {
	svc := &fakeLinkService{unlinkErr: model.ErrUserNotFound}
	h := NewLinkHandler(svc, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/unlink", strings.NewReader(`{"user_id":"ghost"}`))
	w := httptest.NewRecorder()

	h.Unlink(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
