package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/neocal/internal/model"
)

// serveAs はユーザーIDを注入したリクエストをハンドラーに渡し、ステータスコードを返す。
func serveAs(handler http.Handler, method, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func testLimiterConfig(generalBurst, mealBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		MealLogRate:     rate.Limit(1.0 / 60.0),
		MealLogBurst:    mealBurst,
		// セッション発行は1分に1回、バースト2
		SessionIssueRate:  rate.Limit(1.0 / 60.0),
		SessionIssueBurst: 2,
		CleanupInterval:   time.Minute,
	}
}

func TestRateLimiter_General_AllowsBurstThenReturns429(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(3, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		if w := serveAs(handler, http.MethodGet, "/api/meals", "user-1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := serveAs(handler, http.MethodGet, "/api/meals", "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}
	body := decodeErrorBody(t, w.Result())
	if body.Code != model.ErrCodeRateLimitExceeded {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimitExceeded)
	}
	if body.Category != model.CategoryRateLimit {
		t.Errorf("category = %q, want %q", body.Category, model.CategoryRateLimit)
	}
}

func TestRateLimiter_General_IsolatesUsers(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(1, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	serveAs(handler, http.MethodGet, "/api/meals", "user-a")
	if w := serveAs(handler, http.MethodGet, "/api/meals", "user-a"); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-a second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w := serveAs(handler, http.MethodGet, "/api/meals", "user-b"); w.Code != http.StatusOK {
		t.Errorf("user-b first request: status = %d, want %d", w.Code, http.StatusOK)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestRateLimiter_NoUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(5, 5))
	defer rl.Stop()

	for name, mw := range map[string]func(http.Handler) http.Handler{
		"general":  rl.GeneralMiddleware(),
		"meal_log": rl.MealLogMiddleware(),
	} {
		t.Run(name, func(t *testing.T) {
			w := serveAs(mw(okHandler()), http.MethodPost, "/api/meals/text", "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRateLimiter_MealLog_RetryAfterReflectsSlowRate(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(10, 1))
	defer rl.Stop()

	handler := rl.MealLogMiddleware()(okHandler())

	if w := serveAs(handler, http.MethodPost, "/api/meals/text", "user-meal"); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", w.Code, http.StatusOK)
	}
	w := serveAs(handler, http.MethodPost, "/api/meals/text", "user-meal")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	// 1 req/min のため補充まで60秒
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
}

// TestRateLimiter_MealLog_IndependentFromGeneral は食事記録の制限がAPI全般の制限と独立していることを検証する。
func TestRateLimiter_MealLog_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(10, 1))
	defer rl.Stop()

	mealHandler := rl.MealLogMiddleware()(okHandler())
	generalHandler := rl.GeneralMiddleware()(okHandler())

	serveAs(mealHandler, http.MethodPost, "/api/meals/text", "user-x")
	if w := serveAs(mealHandler, http.MethodPost, "/api/meals/text", "user-x"); w.Code != http.StatusTooManyRequests {
		t.Errorf("meal log: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w := serveAs(generalHandler, http.MethodGet, "/api/meals", "user-x"); w.Code != http.StatusOK {
		t.Errorf("general: status = %d, want %d", w.Code, http.StatusOK)
	}
	if rl.MealLogLimiterCount() != 1 {
		t.Errorf("MealLogLimiterCount = %d, want 1", rl.MealLogLimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(5, 5))
	defer rl.Stop()

	serveAs(rl.GeneralMiddleware()(okHandler()), http.MethodGet, "/", "user-stale")
	serveAs(rl.MealLogMiddleware()(okHandler()), http.MethodPost, "/", "user-stale")

	req := httptest.NewRequest(http.MethodPost, "/api/session/anonymous", nil)
	rl.SessionIssueMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), req)

	// 最終アクセス時刻を過去にずらす
	for _, set := range []*limiterSet{rl.general, rl.mealLog, rl.sessionIssue} {
		set.mu.Lock()
		for _, entry := range set.entries {
			entry.lastAccess = time.Now().Add(-time.Hour)
		}
		set.mu.Unlock()
	}

	rl.cleanup()

	if rl.GeneralLimiterCount() != 0 || rl.MealLogLimiterCount() != 0 || rl.SessionIssueLimiterCount() != 0 {
		t.Errorf("counts after cleanup = (%d, %d, %d), want (0, 0, 0)",
			rl.GeneralLimiterCount(), rl.MealLogLimiterCount(), rl.SessionIssueLimiterCount())
	}
}

func TestNewRateLimiterConfig_PerMinuteConversion(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 20, 10)

	if cfg.GeneralRate != rate.Limit(2) {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.MealLogBurst != 20 {
		t.Errorf("MealLogBurst = %d, want 20", cfg.MealLogBurst)
	}
	if cfg.SessionIssueBurst != 10 {
		t.Errorf("SessionIssueBurst = %d, want 10", cfg.SessionIssueBurst)
	}

	unlimited := NewRateLimiterConfig(0, -1, 0)
	if unlimited.GeneralRate != rate.Inf || unlimited.MealLogRate != rate.Inf || unlimited.SessionIssueRate != rate.Inf {
		t.Errorf("non-positive limits should be unlimited, got %v / %v / %v",
			unlimited.GeneralRate, unlimited.MealLogRate, unlimited.SessionIssueRate)
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.GeneralBurst != 120 || cfg.MealLogBurst != 20 || cfg.SessionIssueBurst != 10 {
		t.Errorf("bursts = (%d, %d, %d), want (120, 20, 10)", cfg.GeneralBurst, cfg.MealLogBurst, cfg.SessionIssueBurst)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want %v", cfg.CleanupInterval, 5*time.Minute)
	}
}

// TestRateLimiter_SessionIssue_KeyedByClientIP はセッション発行の制限が接続元IPごとに働くことを検証する。
func TestRateLimiter_SessionIssue_KeyedByClientIP(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(10, 10))
	defer rl.Stop()

	handler := rl.SessionIssueMiddleware()(okHandler())
	issue := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/session/anonymous", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	// 同じIPはポートが違っても同じ枠を使う
	for i, addr := range []string{"203.0.113.7:5000", "203.0.113.7:5001"} {
		if w := issue(addr); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	w := issue("203.0.113.7:5002")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}

	if w := issue("198.51.100.9:5000"); w.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want %d", w.Code, http.StatusOK)
	}
	if rl.SessionIssueLimiterCount() != 2 {
		t.Errorf("SessionIssueLimiterCount = %d, want 2", rl.SessionIssueLimiterCount())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"203.0.113.7:5000", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
