package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://accounts.social-platform.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// AttemptStore is the consumer-side contract for sliding-window bookkeeping.
// repository/redis.RateLimitRepository satisfies it.
type AttemptStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc derives the scope a rule counts against, usually the client IP.
// Returning false skips the rule for this request.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule is one sliding-window limit: at most Limit attempts per
// identifier inside Window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter evaluates rules against an attempt store and rejects requests
// over the limit with an RFC 9457 problem document.
type RateLimiter struct {
	store  AttemptStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is the RFC 9457 payload returned on 429 responses.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// decision is the outcome of evaluating one rule for one request.
type decision struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// NewRateLimiter wires the middleware to its attempt store.
func NewRateLimiter(store AttemptStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule by the requesting client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit enforces the given rules in order. The first rule over its limit
// rejects the request with 429; otherwise the strictest evaluation feeds the
// X-RateLimit response headers. Store failures skip the rule rather than
// failing the request.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if rl.store == nil || len(active) == 0 {
			c.Next()
			return
		}

		now := rl.now()
		var strictest *decision

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			dec, err := rl.evaluate(c.Request.Context(), rule, identifier, now)
			if err != nil {
				rl.logger.Warn("rate limit evaluation failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", identifier),
					zap.Error(err))
				continue
			}

			if strictest == nil || dec.stricterThan(*strictest) {
				copied := dec
				strictest = &copied
			}

			if !dec.allowed {
				writeRateLimitHeaders(c, dec)
				rl.reject(c, dec)
				return
			}
		}

		if strictest != nil {
			writeRateLimitHeaders(c, *strictest)
		}
		c.Next()
	}
}

// evaluate trims expired attempts, checks the count against the limit, and
// records the attempt only when it is admitted.
func (rl *RateLimiter) evaluate(ctx context.Context, rule RateLimitRule, identifier string, now time.Time) (decision, error) {
	key := fmt.Sprintf("%s:%s", rule.Name, identifier)

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return decision{}, fmt.Errorf("trim window: %w", err)
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, fmt.Errorf("count attempts: %w", err)
	}

	reset := now.Add(rule.Window)
	if oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err != nil {
		return decision{}, fmt.Errorf("oldest attempt: %w", err)
	} else if found {
		reset = oldest.Add(rule.Window)
	}

	dec := decision{limit: rule.Limit, reset: reset}

	if count >= rule.Limit {
		dec.retryAfter = max(reset.Sub(now), 0)
		return dec, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return decision{}, fmt.Errorf("record attempt: %w", err)
	}

	dec.allowed = true
	dec.remaining = max(rule.Limit-count-1, 0)
	return dec, nil
}

// stricterThan orders decisions for header reporting: denials beat allowals,
// then fewer remaining attempts, then the earlier reset.
func (d decision) stricterThan(other decision) bool {
	if d.allowed != other.allowed {
		return !d.allowed
	}
	if d.remaining != other.remaining {
		return d.remaining < other.remaining
	}
	return d.reset.Before(other.reset)
}

func writeRateLimitHeaders(c *gin.Context, dec decision) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(dec.remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.reset.Unix(), 10))
	if !dec.allowed {
		h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(dec)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, dec decision) {
	seconds := retryAfterSeconds(dec)
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retryAfterSeconds(dec decision) int {
	return max(int(math.Ceil(dec.retryAfter.Seconds())), 0)
}
