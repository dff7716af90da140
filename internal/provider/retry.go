package provider

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/researchd/researchd/pkg/errors"
	"github.com/researchd/researchd/pkg/logger"
	"github.com/researchd/researchd/pkg/telemetry"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3

	// Padding added on top of the server-suggested retry delay.
	rateLimitBuffer = 5 * time.Second

	// Fallback when a rate-limited response carries no retry hint.
	defaultRateLimitDelay = 60 * time.Second
)

// transientDelays is the fixed backoff schedule for transient failures.
var transientDelays = [...]time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

type errorClass int

const (
	classFatal errorClass = iota
	classRateLimit
	classTransient
)

var retryAfterRe = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*s`)

// classifyError buckets a provider error into rate-limit, transient, or
// fatal based on the error text, mirroring the API's failure modes.
func classifyError(err error) errorClass {
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return classRateLimit
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "timeout") || strings.Contains(msg, "503") || strings.Contains(msg, "502") {
		return classTransient
	}
	return classFatal
}

// parseRetryAfter extracts the server-suggested delay ("retry in 14.5s")
// from a rate-limit error, returning ok=false when absent.
func parseRetryAfter(err error) (time.Duration, bool) {
	m := retryAfterRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// sleepFunc is swapped out in tests.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs call up to maxAttempts times. Rate-limited calls wait
// the server-suggested delay plus a buffer; transient failures back off
// 1s/2s/4s; fatal errors return immediately.
func withRetry(ctx context.Context, op string, maxAttempts int, sleep sleepFunc, call func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	metrics := telemetry.GetMetrics()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = call()
		if lastErr == nil {
			metrics.RecordProviderCall(ctx, op, true)
			return nil
		}

		class := classifyError(lastErr)
		if class == classFatal {
			metrics.RecordProviderCall(ctx, op, false)
			return errors.Wrap(errors.ErrCodeProviderFatal, fmt.Sprintf("%s failed", op), lastErr)
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		switch class {
		case classRateLimit:
			metrics.RecordProviderRetry(ctx, op, "rate_limit")
			delay = defaultRateLimitDelay
			if suggested, ok := parseRetryAfter(lastErr); ok {
				delay = suggested
			}
			delay += rateLimitBuffer
			logger.Warn("provider rate limited, backing off",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
		case classTransient:
			metrics.RecordProviderRetry(ctx, op, "transient")
			idx := attempt - 1
			if idx >= len(transientDelays) {
				idx = len(transientDelays) - 1
			}
			delay = transientDelays[idx]
			logger.Warn("provider transient failure, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
		}

		if serr := sleep(ctx, delay); serr != nil {
			return errors.Wrap(errors.ErrCodeCanceled, fmt.Sprintf("%s canceled during backoff", op), serr)
		}
	}

	metrics.RecordProviderCall(ctx, op, false)
	msg := fmt.Sprintf("%s failed after %d attempts", op, maxAttempts)
	appErr := errors.Wrap(errors.ErrCodeProviderExhausted, msg, lastErr)
	switch classifyError(lastErr) {
	case classRateLimit:
		return appErr.WithDetails("quota exhausted; check API plan limits, reduce request rate, or wait before retrying")
	default:
		return appErr.WithDetails("provider unavailable; check network connectivity and service status")
	}
}
