package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docrag/internal/domain"
)

// scriptedEmbedder returns the queued errors in order, then vec.
type scriptedEmbedder struct {
	errs  []error
	vec   []float32
	calls int
}

func (s *scriptedEmbedder) Name() string { return "scripted" }

func (s *scriptedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return s.vec, nil
}

func rateLimitErr() error {
	return fmt.Errorf("%w: 429 too many requests", domain.ErrRateLimited)
}

var errFatal = errors.New("401 unauthorized")

type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}
