package embedding

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/pkg/waitutil"
)

const defaultMaxRetries = 3

// Policy bounds retries of rate-limited embedding calls. Retry n (1-based)
// waits Base*n before calling the provider again.
type Policy struct {
	MaxRetries int
	Base       time.Duration
}

// IngestPolicy and QueryPolicy are the bulk and interactive defaults.
var (
	IngestPolicy = Policy{MaxRetries: defaultMaxRetries, Base: 30 * time.Second}
	QueryPolicy  = Policy{MaxRetries: defaultMaxRetries, Base: 20 * time.Second}
)

func (p Policy) backoff(retry int) time.Duration {
	return p.Base * time.Duration(retry)
}

// Retrying wraps an Embedder, retrying only errors classified as
// domain.ErrRateLimited. It holds no mutable state, so one instance may serve
// concurrent callers.
type Retrying struct {
	next   domain.Embedder
	policy Policy
	sleep  waitutil.SleepFunc
}

func NewRetrying(next domain.Embedder, policy Policy) *Retrying {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Retrying{next: next, policy: policy, sleep: waitutil.Sleep}
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	logger := logutil.GetLogger(ctx)
	for attempt := 1; ; attempt++ {
		vec, err := r.next.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !domain.IsRateLimited(err) || attempt > r.policy.MaxRetries {
			return nil, &domain.EmbeddingError{Attempts: attempt, Cause: err}
		}
		wait := r.policy.backoff(attempt)
		logger.Warn("embedding rate limited, backing off",
			zap.String("embedder", r.next.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}
