package memory

import (
	"fmt"
	"math"
	"sort"

	"docrag/internal/domain"
)

// Index is an in-memory, brute-force cosine similarity view over a loaded
// store. It is immutable once built, so Search may run concurrently.
type Index struct {
	dimension int
	texts     []string
	vectors   [][]float64 // L2-normalized
}

// NewIndex normalizes every stored vector. texts[i] must correspond to
// vectors[i].
func NewIndex(texts []string, vectors [][]float32) (*Index, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("%w: %d texts but %d vectors", domain.ErrStoreCorrupt, len(texts), len(vectors))
	}
	idx := &Index{
		texts:   append([]string(nil), texts...),
		vectors: make([][]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dimension = len(v)
		}
		if len(v) != idx.dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrDimensionMismatch, i, len(v), idx.dimension)
		}
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("stored vector %d: %w", i, err)
		}
		idx.vectors[i] = n
	}
	return idx, nil
}

func (x *Index) Size() int { return len(x.vectors) }

// Dimension returns the vector dimension, or 0 for an empty index.
func (x *Index) Dimension() int { return x.dimension }

// Search ranks all stored vectors by cosine similarity to query and returns
// the top k. Equal scores keep insertion order.
func (x *Index) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if len(x.vectors) == 0 {
		return nil, domain.ErrEmptyStore
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidParameter, k)
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d, store has %d", domain.ErrDimensionMismatch, len(query), x.dimension)
	}
	q, err := normalize(query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	scores := make([]float64, len(x.vectors))
	for i := range x.vectors {
		scores[i] = dot(x.vectors[i], q)
	}
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Index: j, Text: x.texts[j], Score: scores[j]})
	}
	return results, nil
}

func normalize(v []float32) ([]float64, error) {
	sum := 0.0
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, domain.ErrDegenerateVector
	}
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: norm is %v", domain.ErrDegenerateVector, norm)
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f) / norm
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// argsortDesc orders indexes by score descending, ties by index ascending.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return vals[idxs[a]] > vals[idxs[b]]
	})
	return idxs
}
