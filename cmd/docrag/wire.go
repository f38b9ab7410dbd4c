package main

import (
	"context"
	"fmt"
	"time"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding"
)

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "window", "":
		c, err := chunker.NewWindowChunker(cfg.Size, cfg.Overlap)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "sentence":
		c, err := chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker %q", domain.ErrInvalidParameter, cfg.Type)
	}
}

// newIngestEmbedder builds the bulk embedding path: provider wrapped in the
// ingest retry policy.
func newIngestEmbedder(ctx context.Context, cfg *config.AppConfig) (domain.Embedder, error) {
	provider, err := embedding.New(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}
	return embedding.NewRetrying(provider, embedding.Policy{
		MaxRetries: cfg.Ingest.Retry.Retries(),
		Base:       cfg.Ingest.Retry.Base(),
	}), nil
}

// newQueryEmbedder builds the interactive path: its own retry budget, with
// repeated queries served from the cache.
func newQueryEmbedder(ctx context.Context, cfg *config.AppConfig) (domain.Embedder, error) {
	provider, err := embedding.New(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}
	retrying := embedding.NewRetrying(provider, embedding.Policy{
		MaxRetries: cfg.Query.Retry.Retries(),
		Base:       cfg.Query.Retry.Base(),
	})
	ttl := time.Duration(cfg.Query.Cache.TTLSecs) * time.Second
	return embedding.WrapLRU(retrying, cfg.Query.Cache.Size, ttl), nil
}
