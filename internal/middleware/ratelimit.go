package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/neocal/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate       rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst      int           // API全般のバーストサイズ
	MealLogRate       rate.Limit    // 食事記録のレート（req/sec）。20/60
	MealLogBurst      int           // 食事記録のバーストサイズ
	SessionIssueRate  rate.Limit    // 匿名セッション発行のレート（req/sec、クライアントIPごと）
	SessionIssueBurst int           // 匿名セッション発行のバーストサイズ
	CleanupInterval   time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、食事記録 20 req/min/user、セッション発行 10 req/min/IP。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 20, 10)
}

// NewRateLimiterConfig は1分あたりのリクエスト数からレート制限設定を生成する。
// 0以下の値は制限なしとして扱う。
func NewRateLimiterConfig(generalPerMin, mealLogPerMin, sessionIssuePerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:       perMinute(generalPerMin),
		GeneralBurst:      max(generalPerMin, 1),
		MealLogRate:       perMinute(mealLogPerMin),
		MealLogBurst:      max(mealLogPerMin, 1),
		SessionIssueRate:  perMinute(sessionIssuePerMin),
		SessionIssueBurst: max(sessionIssuePerMin, 1),
		CleanupInterval:   5 * time.Minute,
	}
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(n) / 60.0)
}

// keyedLimiter はキー（ユーザーIDやクライアントIP）ごとのリミッターと最終アクセス時刻。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet はキーごとのリミッターを保持する。
type limiterSet struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*keyedLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limit:   limit,
		burst:   burst,
		entries: make(map[string]*keyedLimiter),
	}
}

// allow はキーのリミッターからトークンを1つ消費できるかを返す。
func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		entry = &keyedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = entry
	}
	entry.lastAccess = time.Now()
	s.mu.Unlock()

	return entry.limiter.Allow()
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep はnow基準でttlより長くアクセスのないエントリを削除する。
func (s *limiterSet) sweep(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if now.Sub(entry.lastAccess) > ttl {
			delete(s.entries, key)
		}
	}
}

// RateLimiter はレート制限を管理する。
// ユーザーごとのAPI全般と食事記録、クライアントIPごとの匿名セッション発行の3種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	general      *limiterSet
	mealLog      *limiterSet
	sessionIssue *limiterSet

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:       config,
		general:      newLimiterSet(config.GeneralRate, config.GeneralBurst),
		mealLog:      newLimiterSet(config.MealLogRate, config.MealLogBurst),
		sessionIssue: newLimiterSet(config.SessionIssueRate, config.SessionIssueBurst),
		stopCh:       make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある（SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.perUser(rl.general, rl.config.GeneralRate, "general")
}

// MealLogMiddleware は食事記録専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) MealLogMiddleware() func(next http.Handler) http.Handler {
	return rl.perUser(rl.mealLog, rl.config.MealLogRate, "meal_log")
}

// SessionIssueMiddleware は匿名セッション発行のレート制限ミドルウェアを返す。
// 認証前に使うため、キーは接続元アドレス（RemoteAddrのホスト部）とする。
func (rl *RateLimiter) SessionIssueMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.sessionIssue.allow(ip) {
				writeRateLimitResponse(w, rl.config.SessionIssueRate)
				slog.Warn("レート制限を超過しました",
					slog.String("client_ip", ip),
					slog.String("limit_type", "session_issue"),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) perUser(set *limiterSet, limit rate.Limit, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if !set.allow(userID) {
				writeRateLimitResponse(w, limit)
				slog.Warn("レート制限を超過しました",
					slog.String("user_id", userID),
					slog.String("limit_type", limitType),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int { return rl.general.len() }

// MealLogLimiterCount は現在管理されている食事記録リミッターのエントリ数を返す。
func (rl *RateLimiter) MealLogLimiterCount() int { return rl.mealLog.len() }

// SessionIssueLimiterCount は現在管理されているセッション発行リミッターのエントリ数を返す。
func (rl *RateLimiter) SessionIssueLimiterCount() int { return rl.sessionIssue.len() }

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.general.sweep(now, ttl)
	rl.mealLog.sweep(now, ttl)
	rl.sessionIssue.sweep(now, ttl)
}

// clientIP はRemoteAddrからホスト部を取り出す。ポートが無い場合はそのまま返す。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが1つ補充されるまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitError())
}
