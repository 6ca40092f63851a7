package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey stores the request correlation id on a context.
type RequestIDKey struct{}

var (
	global     *zap.Logger
	initLogger sync.Once
)

// New builds the process-wide logger once and returns it on every call.
// Production gets the JSON encoder; any other environment gets the colored
// console encoder.
func New(env string) (*zap.Logger, error) {
	var err error
	initLogger.Do(func() {
		global, err = newConfig(env).Build()
	})
	return global, err
}

func newConfig(env string) zap.Config {
	if env == "production" {
		return zap.NewProductionConfig()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// WithContext returns the logger enriched with the request id carried by ctx.
func WithContext(ctx context.Context) *zap.Logger {
	if global == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return global
	}
	return global.With(zap.String("request_id", requestID(ctx)))
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Masking helpers below keep PII out of log sinks. Every call site logs the
// masked form; the raw value never reaches an encoder.

// MaskEmail keeps at most the first three characters of the local part and
// the full domain: john.doe@example.com becomes joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	local, domain, found := strings.Cut(email, "@")
	if !found || domain == "" {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}

	visible := len(local)
	if visible > 3 {
		visible = 3
	}
	return local[:visible] + "***@" + domain
}

// MaskIP hides the host portion of an address. IPv4 keeps the first two
// octets, IPv6 the first four groups.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if octets := strings.Split(ip, "."); len(octets) == 4 {
		return octets[0] + "." + octets[1] + ".*.*"
	}
	if groups := strings.Split(ip, ":"); len(groups) >= 4 {
		return strings.Join(groups[:4], ":") + ":*:*:*:*"
	}
	return "***"
}

// MaskString keeps the first and last two characters of s. Values of four
// characters or fewer are fully masked.
func MaskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
