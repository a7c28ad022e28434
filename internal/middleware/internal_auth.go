package middleware

import (
	"crypto/subtle"
	"net/http"
)

// internalSecretHeader は内部API認証に使うヘッダー名。
const internalSecretHeader = "X-Internal-Secret"

// NewInternalAuthMiddleware は内部API用の共有シークレット認証ミドルウェアを返す。
// ダッシュボードのバックエンドからの呼び出しのみを許可する。
// シークレットの比較は一定時間比較で行う。
func NewInternalAuthMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(internalSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
