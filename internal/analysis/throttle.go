package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/atmx/ledger-engine/internal/metrics"
	"github.com/atmx/ledger-engine/internal/model"
)

// DefaultInterval is the minimum time between two accepted calls.
const DefaultInterval = time.Second

// Throttled admits at most one call per interval to the wrapped analyzer.
// Calls that arrive too early fail with ErrRateLimited and never reach it.
type Throttled struct {
	next    Analyzer
	limiter *rate.Limiter
	now     func() time.Time
}

// ThrottleOption configures a Throttled analyzer.
type ThrottleOption func(*Throttled)

// WithClock overrides the time source used for admission.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttled) { t.now = now }
}

// NewThrottled wraps next. A non-positive interval selects DefaultInterval.
func NewThrottled(next Analyzer, interval time.Duration, opts ...ThrottleOption) *Throttled {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Analyze forwards the call if the interval has elapsed.
func (t *Throttled) Analyze(ctx context.Context, contractText string) (string, error) {
	if strings.TrimSpace(contractText) == "" {
		metrics.AnalysisCalls.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: contract text is required", model.ErrInvalidOperation)
	}
	if !t.limiter.AllowN(t.now(), 1) {
		metrics.AnalysisCalls.WithLabelValues("rate_limited").Inc()
		return "", ErrRateLimited
	}

	out, err := t.next.Analyze(ctx, contractText)
	switch {
	case err == nil:
		metrics.AnalysisCalls.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrUpstreamQuotaExceeded):
		metrics.AnalysisCalls.WithLabelValues("quota_exceeded").Inc()
	default:
		metrics.AnalysisCalls.WithLabelValues("error").Inc()
	}
	return out, err
}
