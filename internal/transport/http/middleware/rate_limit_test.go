package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

// scriptedStore returns canned window state and records the keys it was
// asked about.
type scriptedStore struct {
	count     int
	oldest    time.Time
	hasOldest bool
	failTrim  error

	trimKeys    []string
	recordKeys  []string
	recordCount int
}

func (s *scriptedStore) TrimWindow(_ context.Context, identifier string, _ time.Duration, _ time.Time) error {
	s.trimKeys = append(s.trimKeys, identifier)
	return s.failTrim
}

func (s *scriptedStore) CountAttempts(_ context.Context, _ string, _ time.Duration, _ time.Time) (int, error) {
	return s.count, nil
}

func (s *scriptedStore) RecordAttempt(_ context.Context, identifier string, _ time.Time) error {
	s.recordKeys = append(s.recordKeys, identifier)
	s.recordCount++
	return nil
}

func (s *scriptedStore) OldestAttempt(_ context.Context, _ string, _ time.Duration, _ time.Time) (time.Time, bool, error) {
	return s.oldest, s.hasOldest, nil
}

func limitedRouter(t *testing.T, store AttemptStore, now time.Time, rule RateLimitRule) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.RateLimit(rule))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func fixedIdentifier(id string) IdentifierFunc {
	return func(*gin.Context) (string, bool) { return id, id != "" }
}

func TestRateLimiterAdmitsAndReportsHeaders(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &scriptedStore{count: 2, oldest: now.Add(-30 * time.Second), hasOldest: true}

	router := limitedRouter(t, store, now, RateLimitRule{
		Name:       "login",
		Limit:      5,
		Window:     time.Minute,
		Identifier: fixedIdentifier("192.0.2.1"),
	})

	rr := performRequest(router, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if store.recordCount != 1 {
		t.Fatalf("recorded %d attempts, want 1", store.recordCount)
	}
	if len(store.recordKeys) != 1 || store.recordKeys[0] != "login:192.0.2.1" {
		t.Fatalf("attempt recorded under %v, want [login:192.0.2.1]", store.recordKeys)
	}

	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("limit header = %q, want 5", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Errorf("remaining header = %q, want 2", got)
	}
	wantReset := strconv.FormatInt(store.oldest.Add(time.Minute).Unix(), 10)
	if got := rr.Header().Get("X-RateLimit-Reset"); got != wantReset {
		t.Errorf("reset header = %q, want %s", got, wantReset)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Errorf("unexpected Retry-After %q on admitted request", got)
	}
}

func TestRateLimiterRejectsAtLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &scriptedStore{count: 5, oldest: now.Add(-15 * time.Second), hasOldest: true}

	router := limitedRouter(t, store, now, RateLimitRule{
		Name:       "login",
		Limit:      5,
		Window:     time.Minute,
		Identifier: fixedIdentifier("192.0.2.1"),
	})

	rr := performRequest(router, http.MethodGet, "/")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.recordCount != 0 {
		t.Fatalf("rejected request recorded %d attempts, want 0", store.recordCount)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Errorf("Retry-After = %q, want 45", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode problem document: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Errorf("problem status = %d, want 429", problem.Status)
	}
	if problem.Type != rateLimitProblemType {
		t.Errorf("problem type = %q", problem.Type)
	}
	if problem.RetryAfter != 45 {
		t.Errorf("problem retry_after = %d, want 45", problem.RetryAfter)
	}
}

func TestRateLimiterSkipsRuleWithoutIdentifier(t *testing.T) {
	store := &scriptedStore{count: 100}

	router := limitedRouter(t, store, time.Now(), RateLimitRule{
		Name:       "register",
		Limit:      3,
		Window:     time.Hour,
		Identifier: fixedIdentifier(""),
	})

	rr := performRequest(router, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when identifier is unavailable, got %d", rr.Code)
	}
	if len(store.trimKeys) != 0 {
		t.Fatalf("store consulted for keys %v, want none", store.trimKeys)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	store := &scriptedStore{failTrim: errors.New("redis down")}

	router := limitedRouter(t, store, time.Now(), RateLimitRule{
		Name:       "login",
		Limit:      5,
		Window:     time.Minute,
		Identifier: fixedIdentifier("192.0.2.1"),
	})

	rr := performRequest(router, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when the store is unavailable, got %d", rr.Code)
	}
	if store.recordCount != 0 {
		t.Fatalf("recorded %d attempts during store failure, want 0", store.recordCount)
	}
}
