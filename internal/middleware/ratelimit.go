package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SenderLimiterConfig は送信者ごとのレート制限の設定を保持する。
type SenderLimiterConfig struct {
	Rate            rate.Limit    // 送信者1人あたりのレート（req/sec）
	Burst           int           // バーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
	EntryTTL        time.Duration // 最終アクセスからエントリを破棄するまでの時間
}

// DefaultSenderLimiterConfig は指定のreq/minからデフォルト設定を構築する。
func DefaultSenderLimiterConfig(perMinute int) SenderLimiterConfig {
	return SenderLimiterConfig{
		Rate:            rate.Limit(float64(perMinute) / 60.0),
		Burst:           perMinute,
		CleanupInterval: 5 * time.Minute,
		EntryTTL:        15 * time.Minute,
	}
}

// senderEntry は送信者ごとのレートリミッターとアクセス時刻を保持する。
type senderEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// SenderLimiter はTelegram送信者ごとのレート制限を管理する。
// HTTPミドルウェアではなく、Webhookハンドラーが更新ボディから送信者を
// 特定した後に呼び出す。制限超過のメッセージは処理されないが、
// Webhookの応答自体は成功のままになる。
type SenderLimiter struct {
	config SenderLimiterConfig

	mu       sync.RWMutex
	limiters map[string]*senderEntry

	stopCh chan struct{}
}

// NewSenderLimiter は新しいSenderLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewSenderLimiter(config SenderLimiterConfig) *SenderLimiter {
	sl := &SenderLimiter{
		config:   config,
		limiters: make(map[string]*senderEntry),
		stopCh:   make(chan struct{}),
	}

	go sl.cleanupLoop()

	return sl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (sl *SenderLimiter) Stop() {
	close(sl.stopCh)
}

// Allow は指定送信者のリクエストを許可するかを返す。
func (sl *SenderLimiter) Allow(senderID string) bool {
	entry := sl.getOrCreate(senderID)
	return entry.Allow()
}

func (sl *SenderLimiter) getOrCreate(senderID string) *rate.Limiter {
	sl.mu.RLock()
	entry, ok := sl.limiters[senderID]
	sl.mu.RUnlock()

	if ok {
		sl.mu.Lock()
		entry.lastAccess = time.Now()
		sl.mu.Unlock()
		return entry.limiter
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	// 二重チェック: RLock解放後に別ゴルーチンが作成した可能性がある
	if entry, ok := sl.limiters[senderID]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}

	entry = &senderEntry{
		limiter:    rate.NewLimiter(sl.config.Rate, sl.config.Burst),
		lastAccess: time.Now(),
	}
	sl.limiters[senderID] = entry
	return entry.limiter
}

// cleanupLoop は一定間隔で長期間アクセスのないエントリを破棄する。
func (sl *SenderLimiter) cleanupLoop() {
	ticker := time.NewTicker(sl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sl.stopCh:
			return
		case <-ticker.C:
			sl.cleanup()
		}
	}
}

func (sl *SenderLimiter) cleanup() {
	cutoff := time.Now().Add(-sl.config.EntryTTL)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	for id, entry := range sl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(sl.limiters, id)
		}
	}
}
