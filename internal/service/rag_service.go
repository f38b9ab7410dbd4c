package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/vectorstore/jsonfile"
	"docrag/internal/vectorstore/memory"
)

// RAGService answers similarity queries against a loaded, read-only index.
type RAGService struct {
	embedder domain.Embedder
	index    domain.Searcher
}

func NewRAGService(embedder domain.Embedder, index domain.Searcher) *RAGService {
	return &RAGService{embedder: embedder, index: index}
}

// LoadIndex reads the snapshot at path and builds a search index over it.
func LoadIndex(path string) (*memory.Index, error) {
	st, err := jsonfile.Load(path)
	if err != nil {
		return nil, err
	}
	return memory.NewIndex(st.Documents(), st.Embeddings())
}

// Query embeds query and returns the topK most similar stored chunks.
func (s *RAGService) Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidParameter)
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := s.index.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("query answered", zap.Int("results", len(res)), zap.Int("top_k", topK))
	return res, nil
}

// JoinContext concatenates result texts, separated by a blank line, for
// hand-off to a text generation model.
func JoinContext(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n\n")
}
