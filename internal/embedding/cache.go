package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"docrag/internal/domain"
)

// WrapLRU caches embeddings of repeated texts for ttl. It returns e unchanged
// when caching is disabled.
func WrapLRU(e domain.Embedder, size int, ttl time.Duration) domain.Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  domain.Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Name() string { return l.next.Name() }

func (l *lruEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(l.next.Name(), text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("embedder", l.next.Name()))
		return cloneVector(cached), nil
	}
	res, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneVector(res))
	return res, nil
}

func cacheKey(name, text string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}
	sum := sha256.Sum256([]byte(text))
	return name + ":" + hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
